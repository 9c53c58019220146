// Package wavesync is the public, embeddable facade over the sync
// engine: open a database, declare which tables replicate, write
// through the normal database/sql surface, and the mesh takes care of
// the rest.
package wavesync

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/arjunv/wavesyncdb/internal/clockcheck"
	"github.com/arjunv/wavesyncdb/internal/engine"
	"github.com/arjunv/wavesyncdb/internal/hlc"
	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/interceptor"
	"github.com/arjunv/wavesyncdb/internal/messages"
	"github.com/arjunv/wavesyncdb/internal/metrics"
	"github.com/arjunv/wavesyncdb/internal/notifier"
	"github.com/arjunv/wavesyncdb/internal/oplog"
	"github.com/arjunv/wavesyncdb/internal/registry"
	"github.com/arjunv/wavesyncdb/internal/renderer"
	"github.com/arjunv/wavesyncdb/internal/schema"
	"github.com/arjunv/wavesyncdb/internal/sqlstore"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// DB is an embedded, peer-replicated SQLite database.
type DB struct {
	sqlDB    *sql.DB
	conn     *interceptor.Conn
	engine   *engine.Engine
	registry *registry.Registry
	oplog    *oplog.Log
	notifier *notifier.Notifier
	clock    *hlc.Clock
	nodeID   ids.NodeID
	metrics  *metrics.Metrics
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

type options struct {
	nodeID          *ids.NodeID
	topic           string
	listenAddr      string
	multicastAddr   string
	staticPeers     []string
	logger          *zap.Logger
	metricsNS       string
	hlcMaxDrift     time.Duration
	ntpCheckEnabled bool
	ntpServer       string
}

// Option configures Open.
type Option func(*options)

func WithNodeID(id ids.NodeID) Option { return func(o *options) { o.nodeID = &id } }
func WithTopic(topic string) Option   { return func(o *options) { o.topic = topic } }
func WithListenAddr(addr string) Option {
	return func(o *options) { o.listenAddr = addr }
}
func WithMulticastAddr(addr string) Option {
	return func(o *options) { o.multicastAddr = addr }
}
func WithStaticPeers(peers []string) Option {
	return func(o *options) { o.staticPeers = peers }
}
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }
func WithMetricsNamespace(ns string) Option {
	return func(o *options) { o.metricsNS = ns }
}
func WithHLCMaxDrift(d time.Duration) Option {
	return func(o *options) { o.hlcMaxDrift = d }
}
func WithNTPCheck(server string) Option {
	return func(o *options) { o.ntpCheckEnabled = true; o.ntpServer = server }
}

// Open opens (creating if necessary) a SQLite database at path and
// wires up the replication engine. If WithListenAddr is not given, the
// node operates without a gossip mesh (writes still land locally and
// are logged, just never published).
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	o := options{topic: "wavesyncdb", metricsNS: "wavesync"}
	for _, apply := range opts {
		apply(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.ntpCheckEnabled {
		clockcheck.Check(o.ntpServer, 0, o.logger)
	}

	sqlDB, err := sqlstore.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("wavesync: open store: %w", err)
	}

	log, err := oplog.Open(ctx, sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("wavesync: open oplog: %w", err)
	}

	nodeID := ids.NewNodeID()
	if o.nodeID != nil {
		nodeID = *o.nodeID
	} else if persisted, err := oplog.LoadOrCreateNodeID(ctx, sqlDB); err == nil {
		nodeID = persisted
	} else {
		o.logger.Warn("wavesync: falling back to a random node id", zap.Error(err))
	}

	reg := registry.New()
	n := notifier.New()
	clock := hlc.NewClock(o.hlcMaxDrift)
	m := metrics.NewMetrics(o.metricsNS)

	db := &DB{
		sqlDB: sqlDB, registry: reg, oplog: log, notifier: n,
		clock: clock, nodeID: nodeID, metrics: m, logger: o.logger,
		done: make(chan struct{}),
	}

	var eng *engine.Engine
	if o.listenAddr != "" {
		eng = engine.New(engine.Config{
			NodeID:        nodeID,
			ListenAddr:    o.listenAddr,
			MulticastAddr: o.multicastAddr,
			Topic:         o.topic,
			StaticPeers:   o.staticPeers,
		}, m, o.logger)
		db.engine = eng
	}

	conn := interceptor.New(sqlDB, reg, log, clock, nodeID, n, db.publisher(), renderer.SQLite, o.logger)
	db.conn = conn
	if eng != nil {
		eng.SetConn(conn)
	}

	if eng != nil {
		ctx, cancel := context.WithCancel(context.Background())
		db.cancel = cancel
		go func() {
			defer close(db.done)
			lis, err := net.Listen("tcp", o.listenAddr)
			if err != nil {
				o.logger.Error("wavesync: listen failed, mesh disabled", zap.Error(err))
				return
			}
			if err := eng.RunServer(ctx, func(s *grpc.Server) error { return s.Serve(lis) }); err != nil {
				o.logger.Warn("wavesync: gossip server stopped", zap.Error(err))
			}
		}()
	} else {
		db.cancel = func() {}
		close(db.done)
	}

	return db, nil
}

// publisher returns the engine as an interceptor.Publisher, or nil if
// no mesh is configured (single-node mode).
func (db *DB) publisher() interceptor.Publisher {
	if db.engine == nil {
		return nil
	}
	return db.engine
}

// Conn returns the raw *sql.DB for read queries that don't need write
// interception (SELECTs, migrations against unregistered tables).
func (db *DB) Conn() *sql.DB { return db.sqlDB }

// Exec runs a write statement through the sync interceptor: if its
// table is registered, the statement is stamped, logged, and gossiped.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(ctx, query, args...)
}

// Schema starts a schema.Builder bound to this database.
func (db *DB) Schema() *schema.Builder {
	return schema.New(db.sqlDB, db.registry)
}

// RegisterTable registers an already-created table for sync, for
// callers that create tables themselves rather than through Schema.
func (db *DB) RegisterTable(meta messages.TableMeta) {
	db.registry.Register(meta)
}

// Notifications returns a channel of local change notifications and an
// unsubscribe function to release it.
func (db *DB) Notifications() (<-chan messages.ChangeNotification, func()) {
	return db.notifier.Subscribe()
}

// Peers returns the gossip peers currently connected, or nil if this
// database was opened without a mesh.
func (db *DB) Peers() []string {
	if db.engine == nil {
		return nil
	}
	return db.engine.PeerAddresses()
}

// NodeID returns this replica's identity.
func (db *DB) NodeID() ids.NodeID { return db.nodeID }

// Metrics exposes the Prometheus metrics bound to this database, for
// callers that want to read them directly (see internal/metrics.MetricsReader)
// or serve them over HTTP.
func (db *DB) Metrics() *metrics.Metrics { return db.metrics }

// ReplayFrom requests a full sync from peer and applies every
// operation it returns newer than sinceHLCTime, returning the count
// applied. It fails if this database was opened without a mesh.
func (db *DB) ReplayFrom(ctx context.Context, peer string, sinceHLCTime int64) (int, error) {
	if db.engine == nil {
		return 0, fmt.Errorf("wavesync: no mesh configured, cannot replay")
	}
	return db.engine.RequestFullSync(ctx, peer, sinceHLCTime)
}

// Close stops the gossip server (if any) and closes the database.
func (db *DB) Close() error {
	db.cancel()
	<-db.done
	db.notifier.Close()
	return db.sqlDB.Close()
}
