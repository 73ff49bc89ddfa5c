package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLabels_toPrometheusLabels(t *testing.T) {
	tests := []struct {
		name     string
		labels   Labels
		expected prometheus.Labels
	}{
		{
			name:     "empty labels",
			labels:   Labels{},
			expected: prometheus.Labels{},
		},
		{
			name: "all labels set",
			labels: Labels{
				ChainID:       4202,
				Environment:   "production",
				Region:        "eu-west-1",
				CloudProvider: "aws",
			},
			expected: prometheus.Labels{
				"chain_id":       "4202",
				"environment":    "production",
				"region":         "eu-west-1",
				"cloud_provider": "aws",
			},
		},
		{
			name: "zero chain ID excluded",
			labels: Labels{
				Environment: "test",
			},
			expected: prometheus.Labels{
				"environment": "test",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.labels.toPrometheusLabels())
		})
	}
}

func TestNewWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewWithLabels(reg, Labels{ChainID: 4202, Environment: "test"})
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordRanking("newest", 3)

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() != "petitions_ranking_requests_total" {
			continue
		}
		found = true
		require.NotEmpty(t, mf.GetMetric())

		labelMap := make(map[string]string)
		for _, label := range mf.GetMetric()[0].GetLabel() {
			labelMap[label.GetName()] = label.GetValue()
		}
		require.Equal(t, "4202", labelMap["chain_id"])
		require.Equal(t, "test", labelMap["environment"])
		require.Equal(t, "newest", labelMap["mode"])
	}
	require.True(t, found)
}

func TestNew_RegistrationError(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	m, err := New(reg)
	require.Nil(t, m, "expected nil metrics on duplicate registration")

	var alreadyRegistered prometheus.AlreadyRegisteredError
	require.ErrorAs(t, err, &alreadyRegistered)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.IncRPCInFlight()
		m.DecRPCInFlight()
		m.RecordRPCCall("eth_getLogs", nil, 0.5)
		m.RecordResolution(nil, 0.1, 2, 2)
		m.IncResolutionShared()
		m.AddLogsSkipped(SkipShortTopics, 1)
		m.RecordRanking("trending", 5)
		m.IncInvalidRecord()
		m.RecordClickHouseQuery(nil, 0.1)
		m.RecordAPIRequest("/petitions", 200, 0.01)
	})
}

func TestMetrics_RPCInFlight(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	require.Equal(t, float64(0), testutil.ToFloat64(m.rpcInFlight))

	m.IncRPCInFlight()
	m.IncRPCInFlight()
	require.Equal(t, float64(2), testutil.ToFloat64(m.rpcInFlight))

	m.DecRPCInFlight()
	require.Equal(t, float64(1), testutil.ToFloat64(m.rpcInFlight))
}

func TestMetrics_RecordRPCCall(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRPCCall("eth_call", nil, 0.05)
	require.Equal(t, float64(1), testutil.ToFloat64(m.rpcCalls.WithLabelValues("eth_call", StatusSuccess)))

	m.RecordRPCCall("eth_call", errors.New("connection refused"), 1.0)
	require.Equal(t, float64(1), testutil.ToFloat64(m.rpcCalls.WithLabelValues("eth_call", StatusError)))

	m.RecordRPCCall("eth_getLogs", nil, 0.1)
	m.RecordRPCCall("eth_getLogs", nil, 0.2)
	require.Equal(t, float64(2), testutil.ToFloat64(m.rpcCalls.WithLabelValues("eth_getLogs", StatusSuccess)))
}

func TestMetrics_RecordResolution(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordResolution(nil, 0.2, 5, 3)
	m.RecordResolution(errors.New("timeout"), 15, 0, 0)
	m.IncResolutionShared()

	require.Equal(t, float64(1), testutil.ToFloat64(m.resolutions.WithLabelValues(StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.resolutions.WithLabelValues(StatusError)))
	require.Equal(t, float64(5), testutil.ToFloat64(m.logsScanned))
	require.Equal(t, float64(3), testutil.ToFloat64(m.signersResolved))
	require.Equal(t, float64(1), testutil.ToFloat64(m.resolutionsShared))
	require.Equal(t, 1, testutil.CollectAndCount(m.resolutionDuration))
}

func TestMetrics_AddLogsSkipped(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.AddLogsSkipped(SkipShortTopics, 2)
	m.AddLogsSkipped(SkipInvalidSigner, 1)
	m.AddLogsSkipped(SkipInvalidSigner, 0)
	m.AddLogsSkipped(SkipMalformedLog, -1)

	require.Equal(t, float64(2), testutil.ToFloat64(m.logsSkipped.WithLabelValues(SkipShortTopics)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.logsSkipped.WithLabelValues(SkipInvalidSigner)))
	require.Equal(t, 2, testutil.CollectAndCount(m.logsSkipped))
}

func TestMetrics_Ranking(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRanking("trending", 10)
	m.RecordRanking("trending", 4)
	m.RecordRanking("featured", 1)
	m.IncInvalidRecord()

	require.Equal(t, float64(2), testutil.ToFloat64(m.rankRequests.WithLabelValues("trending")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.rankRequests.WithLabelValues("featured")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.invalidRecords))
}

func TestMetrics_RecordClickHouseQuery(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordClickHouseQuery(nil, 0.01)
	m.RecordClickHouseQuery(errors.New("code: 60"), 0.02)

	require.Equal(t, float64(1), testutil.ToFloat64(m.chQueries.WithLabelValues(StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.chQueries.WithLabelValues(StatusError)))
}

func TestMetrics_RecordAPIRequest(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordAPIRequest("/petitions/:id", 404, 0.001)
	m.RecordAPIRequest("/petitions/:id", 200, 0.002)
	m.RecordAPIRequest("/petitions/:id", 200, 0.003)

	require.Equal(t, float64(2), testutil.ToFloat64(m.apiRequests.WithLabelValues("/petitions/:id", "200")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.apiRequests.WithLabelValues("/petitions/:id", "404")))
}
