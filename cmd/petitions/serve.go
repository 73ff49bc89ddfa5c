package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/civicchain/petition-discovery/pkg/api"
	"github.com/civicchain/petition-discovery/pkg/metrics"
	"github.com/civicchain/petition-discovery/pkg/utils"
)

func serve(c *cli.Context) error {
	// Build configuration from CLI flags
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose, "petitions")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"rpcURL", cfg.RPCURL,
		"clientType", cfg.ClientType,
		"rpcMaxInFlight", cfg.RPCMaxInFlight,
		"contractAddress", cfg.ContractAddress,
		"chainID", cfg.ChainID,
		"logSource", cfg.LogSource,
		"signerTimeout", cfg.SignerTimeout,
		"apiAddr", cfg.APIAddr(),
		"allowedOrigins", cfg.AllowedOrigins,
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
		"clickhouseDatabase", cfg.ClickHouse.Database,
		"clickhouseLogsTable", cfg.ClickHouse.LogsTable,
	)

	if cfg.Verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		ChainID:       cfg.ChainID,
		Environment:   cfg.Environment,
		Region:        cfg.Region,
		CloudProvider: cfg.CloudProvider,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, sugar, m)
	if err != nil {
		return err
	}
	defer a.Close()

	// Start metrics server
	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry, a.health)
	metricsErrCh := metricsServer.Start()
	if cfg.MetricsHost == "" {
		sugar.Infof("metrics server listening on http://0.0.0.0:%d/metrics", cfg.MetricsPort)
	} else {
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())
	}

	apiServer := api.NewServer(api.Config{
		Addr:           cfg.APIAddr(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, a.svc, sugar, m)
	apiErrCh := apiServer.Start()
	sugar.Infof("api server listening on %s", cfg.APIAddr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case err := <-apiErrCh:
			return err
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("serve failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sugar.Info("shutting down api server")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("api server shutdown error", "error", err)
	}

	// Gracefully shutdown metrics server
	sugar.Info("shutting down metrics server")
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("metrics server shutdown error", "error", err)
	}

	sugar.Info("shutdown complete")
	return err
}
