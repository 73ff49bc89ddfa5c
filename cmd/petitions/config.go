package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/urfave/cli/v2"

	"github.com/civicchain/petition-discovery/internal/chainclient/evm"
	"github.com/civicchain/petition-discovery/pkg/clickhouse"
)

const (
	logSourceRPC        = "rpc"
	logSourceClickHouse = "clickhouse"
)

// Config holds all configuration for the petitions application. Flags that a
// subcommand does not declare keep their zero value.
type Config struct {
	// Application settings
	Verbose bool

	// Blockchain settings
	RPCURL          string
	ClientType      string
	RPCMaxInFlight  int64
	ContractAddress string
	ChainID         uint64

	// Signer resolution settings
	LogSource     string
	SignerTimeout time.Duration
	Concurrency   int
	Strict        bool

	// ClickHouse settings, loaded only when LogSource is clickhouse
	ClickHouse clickhouse.Config

	// Refresh settings
	RefreshInterval time.Duration

	// HTTP API settings
	APIHost         string
	APIPort         int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	Environment   string
	Region        string
	CloudProvider string
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// APIAddr returns the formatted HTTP API address
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// buildConfig creates a Config from CLI context flags
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Verbose:         c.Bool("verbose"),
		RPCURL:          c.String("rpc-url"),
		ClientType:      c.String("client-type"),
		RPCMaxInFlight:  c.Int64("rpc-max-in-flight"),
		ContractAddress: c.String("contract-address"),
		ChainID:         c.Uint64("chain-id"),
		LogSource:       c.String("log-source"),
		SignerTimeout:   c.Duration("signer-timeout"),
		Concurrency:     c.Int("concurrency"),
		Strict:          c.Bool("strict"),
		RefreshInterval: c.Duration("refresh-interval"),
		APIHost:         c.String("api-host"),
		APIPort:         c.Int("api-port"),
		AllowedOrigins:  c.StringSlice("allowed-origins"),
		ShutdownTimeout: c.Duration("shutdown-timeout"),
		MetricsHost:     c.String("metrics-host"),
		MetricsPort:     c.Int("metrics-port"),
		Environment:     c.String("environment"),
		Region:          c.String("region"),
		CloudProvider:   c.String("cloud-provider"),
	}

	if cfg.RPCURL == "" {
		return nil, errors.New("rpc-url is required")
	}
	switch cfg.ClientType {
	case evm.ClientTypeCoreth, evm.ClientTypeSubnetEVM:
	default:
		return nil, fmt.Errorf("invalid client type: %s", cfg.ClientType)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", cfg.ContractAddress)
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be non-negative, got %d", cfg.Concurrency)
	}

	switch cfg.LogSource {
	case logSourceRPC:
	case logSourceClickHouse:
		chCfg, err := clickhouse.Load()
		if err != nil {
			return nil, err
		}
		if cfg.ChainID != 0 && chCfg.ChainID != cfg.ChainID {
			return nil, fmt.Errorf("clickhouse chain ID %d does not match chain-id %d", chCfg.ChainID, cfg.ChainID)
		}
		cfg.ClickHouse = chCfg
	default:
		return nil, fmt.Errorf("invalid log source: %s", cfg.LogSource)
	}

	return cfg, nil
}
