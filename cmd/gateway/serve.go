package main

import (
	"context"
	"os"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cardano-ibc/gateway/config"
	"github.com/cardano-ibc/gateway/handler"
	"github.com/cardano-ibc/gateway/height"
	"github.com/cardano-ibc/gateway/ledger"
	"github.com/cardano-ibc/gateway/ledger/dbsync"
	"github.com/cardano-ibc/gateway/ledger/mithril"
	"github.com/cardano-ibc/gateway/ledger/txbuilder"
	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/metrics"
	"github.com/cardano-ibc/gateway/query"
	"github.com/cardano-ibc/gateway/server"
	"github.com/cardano-ibc/gateway/state"
)

// openState connects to db-sync and returns the state reader over it. The
// caller closes the index.
func openState(ctx context.Context, cfg config.Config, logger log.Logger, m metrics.Proxy) (*dbsync.Index, *state.Reader, error) {
	deploy, err := cfg.Deployment.Deployment()
	if err != nil {
		return nil, nil, err
	}
	cache, err := ledger.NewDatumCache(cfg.Cache.DatumSize, m)
	if err != nil {
		return nil, nil, err
	}
	index, err := dbsync.Open(ctx, cfg.DBSync.Index(), logger)
	if err != nil {
		return nil, nil, err
	}
	return index, state.NewReader(index, cache, deploy, logger), nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the gRPC services and the JSON gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.Log.Logger(os.Stderr)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.NewPrometheusMetrics(registry)

			index, reader, err := openState(ctx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer index.Close()

			var certifier ledger.Certifier
			if cfg.Mithril.Endpoint != "" {
				certifier = mithril.NewClient(cfg.Mithril.Mithril(), logger)
			} else {
				logger.Warn("no mithril endpoint configured, heights follow the db-sync tip")
			}

			store := merkle.NewStore(reader, logger, merkle.WithMetrics(m))
			querier := query.New(reader, store, height.NewAdapter(index, certifier, logger), logger,
				query.WithChainID(cfg.ChainID))
			h := handler.New(reader, store, txbuilder.NewClient(cfg.Builder.TxBuilder(), logger), logger)
			srv := server.New(querier, h, logger, server.WithMetrics(m))

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Serve(ctx, cfg.Server.GRPCAddress, cfg.Server.GatewayAddress)
			})
			if addr := cfg.Server.MetricsAddress; addr != "" {
				g.Go(func() error {
					logger.Info("metrics server starting", "addr", addr)
					return metrics.Serve(ctx, addr, registry)
				})
			}
			return g.Wait()
		},
	}
}
