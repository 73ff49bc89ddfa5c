//go:build integration
// +build integration

package clickhouse

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/civicchain/petition-discovery/pkg/utils"
)

// loadTestEnv loads .env.test next to this file, if present.
func loadTestEnv() error {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil
	}
	return godotenv.Load(filepath.Join(filepath.Dir(currentFile), ".env.test"))
}

// Integration tests need a reachable ClickHouse server; they fail rather than skip.
func TestMain(m *testing.M) {
	if err := loadTestEnv(); err != nil {
		log.Printf("integration: could not load .env.test: %v (using environment)", err)
	}
	os.Exit(m.Run())
}

func TestIntegration_NewPingClose(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.DialTimeout = 5

	sugar, err := utils.NewSugaredLogger(true, "clickhouse-test")
	require.NoError(t, err)

	c, err := New(t.Context(), cfg, sugar)
	require.NoError(t, err)
	require.NotNil(t, c.Conn())
	require.NoError(t, c.Ping(t.Context()))
	require.NoError(t, c.Close())
}

func TestIntegration_BadCredentials(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Username = "invaliduser"
	cfg.Password = "invalidpass"

	c, err := New(t.Context(), cfg, nil)
	require.Error(t, err)
	require.Nil(t, c)

	var exception *clickhouse.Exception
	require.ErrorAs(t, err, &exception)
	require.NotZero(t, exception.Code)
}
