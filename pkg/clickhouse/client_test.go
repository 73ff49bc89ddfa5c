package clickhouse

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/pkg/clickhouse/testutils"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"CLICKHOUSE_HOSTS", "CLICKHOUSE_DATABASE", "CLICKHOUSE_LOGS_TABLE",
		"CLICKHOUSE_EVM_CHAIN_ID", "CLICKHOUSE_INSECURE_SKIP_VERIFY",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9000"}, cfg.Hosts)
	require.Equal(t, "default", cfg.Database)
	require.Equal(t, "raw_logs", cfg.LogsTable)
	require.Equal(t, uint64(4202), cfg.ChainID)
	require.False(t, cfg.InsecureSkipVerify)
	require.Equal(t, "default.raw_logs", cfg.Table())
	require.NotEmpty(t, cfg.ClientName)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOSTS", "ch-1:9000,ch-2:9000")
	t.Setenv("CLICKHOUSE_DATABASE", "indexer")
	t.Setenv("CLICKHOUSE_LOGS_TABLE", "lisk_logs")
	t.Setenv("CLICKHOUSE_EVM_CHAIN_ID", "1135")
	t.Setenv("CLICKHOUSE_MAX_EXECUTION_TIME", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"ch-1:9000", "ch-2:9000"}, cfg.Hosts)
	require.Equal(t, "indexer.lisk_logs", cfg.Table())
	require.Equal(t, uint64(1135), cfg.ChainID)
	require.Equal(t, 5, cfg.MaxExecutionTime)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CLICKHOUSE_DIAL_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "parse clickhouse config")
}

func TestNew_NoHosts(t *testing.T) {
	_, err := New(t.Context(), Config{}, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestClient_Methods(t *testing.T) {
	mockConn := &testutils.MockConn{}
	mockConn.On("Ping", mock.Anything).Return(nil).Once()
	mockConn.On("Close").Return(errors.New("already closed")).Once()

	c := newClient(mockConn, zap.NewNop().Sugar())
	require.Same(t, mockConn, c.Conn())
	require.NoError(t, c.Ping(t.Context()))
	require.EqualError(t, c.Close(), "already closed")
	mockConn.AssertExpectations(t)
}
