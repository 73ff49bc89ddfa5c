package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/civicchain/petition-discovery/internal/chainclient/evm"
	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/scheduler"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

const (
	defaultRPCURL  = "https://rpc.sepolia-api.lisk.com"
	defaultChainID = 4202
)

// chainFlags returns the flags shared by every subcommand: logging, the chain
// endpoint and the petition contract.
func chainFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Aliases: []string{"r"},
			Usage:   "The HTTP RPC URL of the chain hosting the petition contract",
			EnvVars: []string{"RPC_URL"},
			Value:   defaultRPCURL,
		},
		&cli.StringFlag{
			Name:    "client-type",
			Aliases: []string{"ct"},
			Usage:   "The type of RPC client to dial the chain with (coreth or subnet-evm)",
			EnvVars: []string{"CLIENT_TYPE"},
			Value:   evm.ClientTypeCoreth,
		},
		&cli.Int64Flag{
			Name:    "rpc-max-in-flight",
			Usage:   "The maximum number of concurrent RPC requests; 0 is unbounded",
			EnvVars: []string{"RPC_MAX_IN_FLIGHT"},
			Value:   16,
		},
		&cli.StringFlag{
			Name:     "contract-address",
			Aliases:  []string{"a"},
			Usage:    "The address of the petition platform contract",
			EnvVars:  []string{"CONTRACT_ADDRESS"},
			Required: true,
		},
		&cli.Uint64Flag{
			Name:    "chain-id",
			Aliases: []string{"C"},
			Usage:   "The expected EVM chain ID; the endpoint is checked on startup. 0 skips the check",
			EnvVars: []string{"CHAIN_ID"},
			Value:   defaultChainID,
		},
		&cli.StringFlag{
			Name:    "log-source",
			Usage:   "Where signer logs are read from (rpc or clickhouse)",
			EnvVars: []string{"LOG_SOURCE"},
			Value:   logSourceRPC,
		},
		&cli.DurationFlag{
			Name:    "signer-timeout",
			Usage:   "The upper bound on a single signer resolution",
			EnvVars: []string{"SIGNER_TIMEOUT"},
			Value:   signers.DefaultTimeout,
		},
	}
}

// listFlags selects and orders a petition list.
func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "The ranking mode (trending, newest or featured)",
			EnvVars: []string{"MODE"},
			Value:   "trending",
		},
		&cli.StringFlag{
			Name:    "q",
			Aliases: []string{"search"},
			Usage:   "Case-insensitive substring matched against title and description",
		},
		&cli.StringFlag{
			Name:  "creator",
			Usage: "Only list petitions created by this address",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "The maximum number of petitions to print; 0 prints all (featured defaults to 10)",
		},
	}
}

func signersFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "The number of petitions resolved concurrently",
			EnvVars: []string{"CONCURRENCY"},
			Value:   discovery.DefaultBatchConcurrency,
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail instead of printing an unavailable signer list",
		},
	}
}

func watchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "refresh-interval",
			Aliases: []string{"i"},
			Usage:   "The interval between list refreshes",
			EnvVars: []string{"REFRESH_INTERVAL"},
			Value:   scheduler.DefaultInterval,
		},
	}
}

// serveFlags returns the HTTP API and metrics server flags.
func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-host",
			Usage:   "The host to bind the HTTP API to",
			EnvVars: []string{"API_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "api-port",
			Usage:   "The port to bind the HTTP API to",
			EnvVars: []string{"API_PORT"},
			Value:   8080,
		},
		&cli.StringSliceFlag{
			Name:    "allowed-origins",
			Usage:   "Origins allowed by CORS (comma-separated); empty allows all",
			EnvVars: []string{"ALLOWED_ORIGINS"},
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "The host to bind the metrics server to",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "The port to bind the metrics server to",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"E"},
			Usage:   "Deployment environment (e.g., production, staging, development)",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"R"},
			Usage:   "Cloud region (e.g., us-east-1, eu-west-1)",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Aliases: []string{"P"},
			Usage:   "Cloud provider (e.g., aws, oci, gcp)",
			EnvVars: []string{"CLOUD_PROVIDER"},
			Value:   "",
		},
		&cli.DurationFlag{
			Name:    "shutdown-timeout",
			Usage:   "How long to wait for in-flight requests on shutdown",
			EnvVars: []string{"SHUTDOWN_TIMEOUT"},
			Value:   5 * time.Second,
		},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}
