package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	server := NewServer(":0", reg, nil) // :0 lets OS pick available port

	require.NotNil(t, server)
	require.NotNil(t, server.httpServer)
	require.Equal(t, ":0", server.httpServer.Addr)
}

func httpGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func TestServer_StartAndShutdown(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(reg)
	require.NoError(t, err)

	server := NewServer("127.0.0.1:19190", reg, nil)
	errCh := server.Start()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)

	resp, err := httpGet(t.Context(), "http://127.0.0.1:19190/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	require.NoError(t, err)

	// Normal shutdown closes the channel without an error.
	err, ok := <-errCh
	require.False(t, ok)
	require.NoError(t, err)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := New(reg)
	require.NoError(t, err)

	m.RecordRPCCall("eth_getLogs", nil, 0.2)
	m.RecordResolution(nil, 0.3, 4, 3)
	m.RecordRanking("trending", 10)

	server := NewServer("", reg, nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "petitions_rpc_calls_total")
	require.Contains(t, body, "petitions_signers_resolutions_total")
	require.Contains(t, body, "petitions_ranking_requests_total")
}

func TestServer_HealthEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		health   HealthFunc
		wantCode int
		wantBody string
	}{
		{
			name:     "no check",
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name:     "healthy",
			health:   func(context.Context) error { return nil },
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name:     "unhealthy",
			health:   func(context.Context) error { return errors.New("rpc unreachable") },
			wantCode: http.StatusServiceUnavailable,
			wantBody: "rpc unreachable\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("", prometheus.NewRegistry(), tt.health)
			rec := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			require.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
