package clickhouse

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the connection settings for a ClickHouse cluster that already
// stores indexed chain logs. Only reads are issued.
// max_block_size is the recommended maximum number of rows per block when
// reading; see https://clickhouse.com/docs/operations/settings/settings
type Config struct {
	Hosts              []string `env:"CLICKHOUSE_HOSTS" envSeparator:"," envDefault:"localhost:9000"`
	Database           string   `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	Username           string   `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	Password           string   `env:"CLICKHOUSE_PASSWORD" envDefault:""`
	Debug              bool     `env:"CLICKHOUSE_DEBUG" envDefault:"false"`
	InsecureSkipVerify bool     `env:"CLICKHOUSE_INSECURE_SKIP_VERIFY" envDefault:"false"`
	MaxExecutionTime   int      `env:"CLICKHOUSE_MAX_EXECUTION_TIME" envDefault:"30"` // seconds
	DialTimeout        int      `env:"CLICKHOUSE_DIAL_TIMEOUT" envDefault:"10"`       // seconds
	MaxOpenConns       int      `env:"CLICKHOUSE_MAX_OPEN_CONNS" envDefault:"4"`
	MaxIdleConns       int      `env:"CLICKHOUSE_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime    int      `env:"CLICKHOUSE_CONN_MAX_LIFETIME" envDefault:"10"` // minutes
	MaxBlockSize       int      `env:"CLICKHOUSE_MAX_BLOCK_SIZE" envDefault:"10000"`
	LogsTable          string   `env:"CLICKHOUSE_LOGS_TABLE" envDefault:"raw_logs"`
	ChainID            uint64   `env:"CLICKHOUSE_EVM_CHAIN_ID" envDefault:"4202"`
	ClientName         string   `env:"CLICKHOUSE_CLIENT_NAME" envDefault:"petition-discovery"`
	ClientVersion      string   `env:"CLICKHOUSE_CLIENT_VERSION" envDefault:"1.0"`
}

// Load reads the ClickHouse configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse clickhouse config: %w", err)
	}
	return cfg, nil
}

// Table returns the fully qualified logs table name.
func (c Config) Table() string {
	return c.Database + "." + c.LogsTable
}
