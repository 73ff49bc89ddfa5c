package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "petitions"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"

	RPC        = "rpc"
	Signers    = "signers"
	Ranking    = "ranking"
	ClickHouse = "clickhouse"
	API        = "api"
)

// Skip reasons for log entries dropped during signer resolution.
const (
	SkipShortTopics   = "short_topics"
	SkipInvalidSigner = "invalid_signer"
	SkipMalformedLog  = "malformed_log"
)

// Labels holds constant labels applied to all metrics.
// These are useful for distinguishing metrics from multiple service instances.
type Labels struct {
	ChainID       uint64 // EVM chain ID (e.g., 4202 for Lisk Sepolia)
	Environment   string // Deployment environment (e.g., "production", "staging", "development")
	Region        string // Cloud region (e.g., "us-east-1", "eu-west-1")
	CloudProvider string // Cloud provider (e.g., "aws", "oci", "gcp")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.ChainID != 0 {
		labels["chain_id"] = strconv.FormatUint(l.ChainID, 10)
	}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	if l.CloudProvider != "" {
		labels["cloud_provider"] = l.CloudProvider
	}
	return labels
}

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

type Metrics struct {
	// RPC metrics
	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rpcInFlight prometheus.Gauge

	// Signer resolution
	resolutions        *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	resolutionsShared  prometheus.Counter
	signersResolved    prometheus.Counter
	logsScanned        prometheus.Counter
	logsSkipped        *prometheus.CounterVec

	// Ranking
	rankRequests   *prometheus.CounterVec
	rankedRecords  prometheus.Histogram
	invalidRecords prometheus.Counter

	// ClickHouse log source
	chQueries       *prometheus.CounterVec
	chQueryDuration prometheus.Histogram

	// HTTP API
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
// Returns an error if any metric registration fails.
// For metrics with constant labels (e.g., chain_id), use NewWithLabels instead.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "calls_total",
			Help:      "Total RPC calls by method and status",
		}, []string{"method", "status"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "duration_seconds",
			Help:      "RPC call duration in seconds",
			Buckets:   latencyBuckets,
		}, []string{"method"}),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RPC,
			Name:      "in_flight",
			Help:      "Number of RPC calls currently in progress",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "resolutions_total",
			Help:      "Total signer resolutions by status",
		}, []string{"status"}),
		resolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "resolution_duration_seconds",
			Help:      "Time to resolve the signer set of one petition, including the log scan",
			Buckets:   latencyBuckets,
		}),
		resolutionsShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "resolutions_shared_total",
			Help:      "Resolutions answered by an identical in-flight request",
		}),
		signersResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "resolved_total",
			Help:      "Total unique signers returned across all resolutions",
		}),
		logsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "logs_scanned_total",
			Help:      "Total log entries returned by the log source",
		}),
		logsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Signers,
			Name:      "logs_skipped_total",
			Help:      "Log entries skipped during signer resolution by reason",
		}, []string{"reason"}),
		rankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Ranking,
			Name:      "requests_total",
			Help:      "Total ranking requests by mode",
		}, []string{"mode"}),
		rankedRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Ranking,
			Name:      "records",
			Help:      "Number of records ranked per request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		invalidRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Ranking,
			Name:      "invalid_records_total",
			Help:      "Petition records rejected during normalization",
		}),
		chQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ClickHouse,
			Name:      "queries_total",
			Help:      "Total ClickHouse log queries by status",
		}, []string{"status"}),
		chQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: ClickHouse,
			Name:      "query_duration_seconds",
			Help:      "ClickHouse log query duration in seconds",
			Buckets:   latencyBuckets,
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: API,
			Name:      "requests_total",
			Help:      "Total HTTP API requests by route and status code",
		}, []string{"route", "code"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: API,
			Name:      "request_duration_seconds",
			Help:      "HTTP API request duration by route",
			Buckets:   latencyBuckets,
		}, []string{"route"}),
	}

	err := errors.Join(
		reg.Register(m.rpcCalls),
		reg.Register(m.rpcDuration),
		reg.Register(m.rpcInFlight),
		reg.Register(m.resolutions),
		reg.Register(m.resolutionDuration),
		reg.Register(m.resolutionsShared),
		reg.Register(m.signersResolved),
		reg.Register(m.logsScanned),
		reg.Register(m.logsSkipped),
		reg.Register(m.rankRequests),
		reg.Register(m.rankedRecords),
		reg.Register(m.invalidRecords),
		reg.Register(m.chQueries),
		reg.Register(m.chQueryDuration),
		reg.Register(m.apiRequests),
		reg.Register(m.apiDuration),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// IncRPCInFlight increments the in-flight RPC gauge.
func (m *Metrics) IncRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Inc()
}

// DecRPCInFlight decrements the in-flight RPC gauge.
func (m *Metrics) DecRPCInFlight() {
	if m == nil {
		return
	}
	m.rpcInFlight.Dec()
}

// RecordRPCCall records an RPC call outcome.
func (m *Metrics) RecordRPCCall(method string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(method, status(err)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordResolution records one signer resolution. scanned is the number of log
// entries the source returned and signers the size of the resulting set.
func (m *Metrics) RecordResolution(err error, durationSeconds float64, scanned, signers int) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(status(err)).Inc()
	m.resolutionDuration.Observe(durationSeconds)
	if scanned > 0 {
		m.logsScanned.Add(float64(scanned))
	}
	if signers > 0 {
		m.signersResolved.Add(float64(signers))
	}
}

// IncResolutionShared counts a resolution served by a concurrent identical call.
func (m *Metrics) IncResolutionShared() {
	if m == nil {
		return
	}
	m.resolutionsShared.Inc()
}

// AddLogsSkipped records log entries dropped for reason.
func (m *Metrics) AddLogsSkipped(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.logsSkipped.WithLabelValues(reason).Add(float64(count))
}

// RecordRanking records a ranking request for mode over n records.
func (m *Metrics) RecordRanking(mode string, n int) {
	if m == nil {
		return
	}
	m.rankRequests.WithLabelValues(mode).Inc()
	m.rankedRecords.Observe(float64(n))
}

// IncInvalidRecord counts a petition record rejected by normalization.
func (m *Metrics) IncInvalidRecord() {
	if m == nil {
		return
	}
	m.invalidRecords.Inc()
}

// RecordClickHouseQuery records a ClickHouse log query outcome.
func (m *Metrics) RecordClickHouseQuery(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.chQueries.WithLabelValues(status(err)).Inc()
	m.chQueryDuration.Observe(durationSeconds)
}

// RecordAPIRequest records a served HTTP request.
func (m *Metrics) RecordAPIRequest(route string, code int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.apiDuration.WithLabelValues(route).Observe(durationSeconds)
}
