// Command wavesync-node runs a standalone WaveSyncDB replica: it opens
// the local SQLite database, joins the gossip mesh, and serves
// Prometheus metrics until terminated.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/arjunv/wavesyncdb/internal/clockcheck"
	"github.com/arjunv/wavesyncdb/internal/config"
	"github.com/arjunv/wavesyncdb/internal/engine"
	"github.com/arjunv/wavesyncdb/internal/hlc"
	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/interceptor"
	"github.com/arjunv/wavesyncdb/internal/metrics"
	"github.com/arjunv/wavesyncdb/internal/notifier"
	"github.com/arjunv/wavesyncdb/internal/oplog"
	"github.com/arjunv/wavesyncdb/internal/registry"
	"github.com/arjunv/wavesyncdb/internal/renderer"
	"github.com/arjunv/wavesyncdb/internal/sqlstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("starting wavesync node",
		zap.String("node_id", cfg.NodeID),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("db_path", cfg.DBPath),
		zap.Strings("static_peers", cfg.StaticPeers))

	if cfg.NTPCheckEnabled {
		clockcheck.Check(cfg.NTPServer, 0, logger)
	}

	m := metrics.NewMetrics("wavesync")

	sqlDB, err := sqlstore.Open(context.Background(), cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()
	logger.Info("sqlite store opened", zap.String("path", cfg.DBPath))

	log, err := oplog.Open(context.Background(), sqlDB)
	if err != nil {
		logger.Fatal("failed to open operation log", zap.Error(err))
	}

	reg := registry.New()
	n := notifier.New()
	nodeID, err := resolveNodeID(context.Background(), sqlDB, cfg.NodeID)
	if err != nil {
		logger.Fatal("failed to resolve node identity", zap.Error(err))
	}
	logger.Info("node identity resolved", zap.String("node_id", nodeID.String()))
	clock := hlc.NewClock(cfg.HLCMaxDrift)
	logger.Info("hlc clock initialized", zap.Duration("max_drift", cfg.HLCMaxDrift))

	eng := engine.New(engine.Config{
		NodeID:              nodeID,
		ListenAddr:          cfg.ListenAddr,
		MulticastAddr:       cfg.MulticastAddr,
		Topic:               cfg.Topic,
		AnnounceEvery:       cfg.AnnounceEvery,
		ReplicateTimeout:    cfg.ReplicateTimeout,
		StaticPeers:         cfg.StaticPeers,
		HealthInterval:      cfg.HealthProbeInterval,
		AntiEntropyDebounce: cfg.AntiEntropyDebounce,
	}, m, logger)
	logger.Info("gossip engine initialised", zap.Int("static_peer_count", len(cfg.StaticPeers)))

	conn := interceptor.New(sqlDB, reg, log, clock, nodeID, n, eng, renderer.SQLite, logger)
	eng.SetConn(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.ListenAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gossip server listening", zap.String("addr", cfg.ListenAddr))
		if err := eng.RunServer(ctx, func(s *grpc.Server) error { return s.Serve(lis) }); err != nil {
			logger.Error("gossip server stopped", zap.Error(err))
		}
	}()

	http.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down gracefully")
	cancel()
	metricsServer.Close()
	logger.Info("shutdown complete")
}

// resolveNodeID honors an explicit NODE_ID override if it parses as a
// UUID, and otherwise falls back to the identity persisted in (or
// minted and stored into) the database's _wavesync_meta table, so the
// default config value ("node1") doesn't clash with a real identity.
func resolveNodeID(ctx context.Context, db *sql.DB, configured string) (ids.NodeID, error) {
	if configured != "" {
		if nodeID, err := ids.ParseNodeID(configured); err == nil {
			return nodeID, nil
		}
	}
	return oplog.LoadOrCreateNodeID(ctx, db)
}
