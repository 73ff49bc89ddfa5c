package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicchain/petition-discovery/internal/chainclient"
	"github.com/civicchain/petition-discovery/internal/chainclient/evm"
	"github.com/civicchain/petition-discovery/pkg/chainlog"
	"github.com/civicchain/petition-discovery/pkg/clickhouse"
	"github.com/civicchain/petition-discovery/pkg/contract"
	"github.com/civicchain/petition-discovery/pkg/data/clickhouse/evmlogs"
	"github.com/civicchain/petition-discovery/pkg/discovery"
	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/signers"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg    *Config
	log    *zap.SugaredLogger
	client chainclient.ChainClient
	ch     clickhouse.Client

	platform *contract.PetitionPlatform
	resolver *signers.Resolver
	svc      *discovery.Service
}

// newApp dials the chain, verifies its chain ID and wires the discovery
// service. m may be nil. The caller must call Close.
func newApp(ctx context.Context, cfg *Config, sugar *zap.SugaredLogger, m *metrics.Metrics) (*app, error) {
	client, err := evm.Dial(ctx, cfg.ClientType, cfg.RPCURL,
		evm.WithMetrics(m),
		evm.WithLogger(sugar),
		evm.WithMaxInFlight(cfg.RPCMaxInFlight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	a := &app{cfg: cfg, log: sugar, client: client}

	if err := a.checkChainID(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var querier chainlog.Querier = client
	if cfg.LogSource == logSourceClickHouse {
		a.ch, err = clickhouse.New(ctx, cfg.ClickHouse, sugar)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create ClickHouse client: %w", err)
		}
		sugar.Infow("reading signer logs from clickhouse", "table", cfg.ClickHouse.Table())
		querier = evmlogs.NewReader(a.ch, cfg.ClickHouse.Table(), cfg.ClickHouse.ChainID, sugar, m)
	}

	a.platform, err = contract.NewPetitionPlatform(client, cfg.ContractAddress, sugar, m)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create contract reader: %w", err)
	}
	a.resolver, err = signers.NewResolver(querier, cfg.ContractAddress, cfg.SignerTimeout, sugar, m)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create signer resolver: %w", err)
	}
	a.svc = discovery.New(a.platform, a.resolver, sugar, discovery.WithMetrics(m))
	return a, nil
}

func (a *app) checkChainID(ctx context.Context) error {
	if a.cfg.ChainID == 0 {
		return nil
	}
	got, err := a.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if got != a.cfg.ChainID {
		return fmt.Errorf("rpc endpoint serves chain %d, expected %d", got, a.cfg.ChainID)
	}
	return nil
}

// health reports whether the chain endpoint is answering.
func (a *app) health(ctx context.Context) error {
	if _, err := a.client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("rpc unreachable: %w", err)
	}
	if a.ch != nil {
		if err := a.ch.Ping(ctx); err != nil {
			return fmt.Errorf("clickhouse unreachable: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.log.Warnw("failed to close clickhouse client", "error", err)
		}
	}
	a.client.Close()
}
