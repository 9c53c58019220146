// Package engine is the gossip mesh: it fans out locally stamped
// operations to known peers, accepts inbound operations over grpc,
// deduplicates and conflict-resolves them through the interceptor, and
// discovers peers on the LAN over UDP multicast.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/interceptor"
	"github.com/arjunv/wavesyncdb/internal/messages"
	"github.com/arjunv/wavesyncdb/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds the mesh-facing settings an Engine is constructed with.
type Config struct {
	NodeID           ids.NodeID
	ListenAddr       string // grpc address this node advertises to peers
	MulticastAddr    string // e.g. "224.0.0.42:9999"
	Topic            string // mesh tag, so unrelated clusters on the same LAN ignore each other
	AnnounceEvery    time.Duration
	ReplicateTimeout time.Duration
	StaticPeers      []string // optional fixed peer list, merged with discovered peers
	HealthInterval   time.Duration
	AntiEntropyDebounce time.Duration // coalescing window before a new peer triggers a full replay
}

// Engine implements interceptor.Publisher and gossipServer. It owns the
// peer connection pool and the transport-level dedup cache.
type Engine struct {
	cfg     Config
	conn    *interceptor.Conn
	metrics *metrics.Metrics
	logger  *zap.Logger
	seen    *seenCache

	mu    sync.RWMutex
	peers map[string]*grpc.ClientConn

	disc    *discovery
	health  *healthProbe
	entropy *antiEntropy

	grpcServer *grpc.Server
}

// New constructs an Engine. conn is wired back into the Engine after
// construction via SetConn, since interceptor.Conn and Engine each
// depend on the other (Conn.publisher == Engine, Engine.conn == Conn).
func New(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Engine {
	healthInterval := cfg.HealthInterval
	if healthInterval <= 0 {
		healthInterval = 15 * time.Second
	}
	debounce := cfg.AntiEntropyDebounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	e := &Engine{
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		seen:    newSeenCache(),
		peers:   make(map[string]*grpc.ClientConn),
	}
	e.health = newHealthProbe(e, healthInterval, logger)
	e.entropy = newAntiEntropy(e, debounce, logger)
	e.health.SetHealingListener(e.entropy)

	for _, addr := range cfg.StaticPeers {
		if err := e.addPeer(addr); err != nil {
			logger.Warn("failed to connect to static peer", zap.String("peer", addr), zap.Error(err))
		}
	}
	return e
}

// SetConn wires the local intercepting connection the engine applies
// remote operations against. Must be called before RunServer.
func (e *Engine) SetConn(conn *interceptor.Conn) {
	e.conn = conn
}

func (e *Engine) addPeer(addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.peers[addr]; ok {
		return nil
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()))
	if err != nil {
		return err
	}
	e.peers[addr] = conn
	e.metrics.PeerCount.Set(float64(len(e.peers)))
	e.logger.Info("connected to peer", zap.String("peer", addr))
	if e.entropy != nil {
		e.entropy.NotifyHealingEvent(addr)
	}
	return nil
}

func (e *Engine) removePeer(addr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if conn, ok := e.peers[addr]; ok {
		conn.Close()
		delete(e.peers, addr)
		e.metrics.PeerCount.Set(float64(len(e.peers)))
	}
}

func (e *Engine) peerSnapshot() map[string]*grpc.ClientConn {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*grpc.ClientConn, len(e.peers))
	for addr, conn := range e.peers {
		out[addr] = conn
	}
	return out
}

// RunServer starts the grpc gossip server on cfg.ListenAddr and blocks
// until ctx is cancelled.
func (e *Engine) RunServer(ctx context.Context, serve func(*grpc.Server) error) error {
	e.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	e.grpcServer.RegisterService(&serviceDesc, e)

	errCh := make(chan error, 1)
	go func() { errCh <- serve(e.grpcServer) }()

	if e.cfg.MulticastAddr != "" {
		announceEvery := e.cfg.AnnounceEvery
		if announceEvery <= 0 {
			announceEvery = 10 * time.Second
		}
		disc, err := newDiscovery(e.cfg.MulticastAddr, e.cfg.Topic, e.cfg.ListenAddr, announceEvery, e.logger, func(addr string) {
			if err := e.addPeer(addr); err != nil {
				e.logger.Warn("failed to connect to discovered peer", zap.String("peer", addr), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("engine: discovery: %w", err)
		}
		e.disc = disc
		go disc.Run(ctx)
	}

	go e.health.Run(ctx)
	go e.entropy.Run(ctx)

	select {
	case <-ctx.Done():
		e.grpcServer.GracefulStop()
		e.closeAllPeers()
		return nil
	case err := <-errCh:
		return err
	}
}

func (e *Engine) closeAllPeers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, conn := range e.peers {
		conn.Close()
	}
}

// Publish satisfies interceptor.Publisher: it fans op out to every
// known peer concurrently and does not wait for acknowledgement
// beyond the per-peer timeout. Gossip delivery is best-effort; the
// oplog and anti-entropy replay are what make the mesh eventually
// consistent, not Publish's return value.
func (e *Engine) Publish(ctx context.Context, op messages.SyncOperation) error {
	e.seen.MarkSeen(op.OpID)
	e.metrics.OpsPublishedTotal.Inc()

	peers := e.peerSnapshot()
	if len(peers) == 0 {
		return nil
	}

	payload := messages.Encode(op)
	timeout := e.cfg.ReplicateTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	start := time.Now()
	var wg sync.WaitGroup
	for addr, conn := range peers {
		wg.Add(1)
		go func(addr string, conn *grpc.ClientConn) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			rttStart := time.Now()
			_, err := callPublish(pctx, conn, payload)
			rtt := time.Since(rttStart)
			e.metrics.PeerRTT.WithLabelValues(addr).Set(rtt.Seconds())
			if err != nil {
				e.logger.Warn("gossip publish to peer failed",
					zap.String("peer", addr), zap.String("op_id", op.OpID.String()), zap.Error(err))
			}
		}(addr, conn)
	}
	wg.Wait()
	e.metrics.PublishLatency.Observe(time.Since(start).Seconds())
	return nil
}

// handlePublish satisfies gossipServer: decode, dedup, and apply an
// inbound operation via the local interceptor, resolving conflicts
// against the oplog.
func (e *Engine) handlePublish(ctx context.Context, payload []byte) ([]byte, error) {
	op, err := messages.Decode(payload)
	if err != nil {
		e.metrics.RecordRejected("decode_error")
		return nil, fmt.Errorf("engine: decode publish: %w", err)
	}

	if e.seen.MarkSeen(op.OpID) {
		return nil, nil
	}

	applied, err := e.conn.ApplyRemote(ctx, op)
	if err != nil {
		e.metrics.RecordRejected("apply_error")
		return nil, fmt.Errorf("engine: apply remote: %w", err)
	}
	if applied {
		e.metrics.RecordApplied()
		e.metrics.ConflictResolutions.WithLabelValues("applied").Inc()
		e.relay(ctx, op)
	} else {
		e.metrics.OpsReceivedTotal.Inc()
		e.metrics.ConflictResolutions.WithLabelValues("superseded").Inc()
	}
	return nil, nil
}

// relay re-gossips an applied remote operation to this node's other
// peers, so a fan-out of degree 1 still reaches the whole mesh over a
// few hops rather than requiring every node to know every other node.
func (e *Engine) relay(ctx context.Context, op messages.SyncOperation) {
	peers := e.peerSnapshot()
	if len(peers) == 0 {
		return
	}
	payload := messages.Encode(op)
	for addr, conn := range peers {
		go func(addr string, conn *grpc.ClientConn) {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := callPublish(rctx, conn, payload); err != nil {
				e.logger.Debug("relay to peer failed", zap.String("peer", addr), zap.Error(err))
			}
		}(addr, conn)
	}
	_ = ctx
}

// handleFullSync satisfies gossipServer: replay every operation logged
// since the requested HLC time, concatenated into one payload of
// length-prefixed encoded operations.
func (e *Engine) handleFullSync(ctx context.Context, payload []byte) ([]byte, error) {
	var sinceHLCTime int64
	if len(payload) == 8 {
		for i := 7; i >= 0; i-- {
			sinceHLCTime = sinceHLCTime<<8 | int64(payload[i])
		}
	}

	ops, err := e.conn.OpsSince(ctx, sinceHLCTime)
	if err != nil {
		return nil, fmt.Errorf("engine: full sync: %w", err)
	}

	var out []byte
	for _, op := range ops {
		enc := messages.Encode(op)
		out = appendFrame(out, enc)
	}
	return out, nil
}

// handlePing satisfies gossipServer: an empty round trip used purely
// to measure liveness and RTT.
func (e *Engine) handlePing(ctx context.Context, payload []byte) ([]byte, error) {
	return payload, nil
}

func appendFrame(buf, frame []byte) []byte {
	n := len(frame)
	buf = append(buf, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	return append(buf, frame...)
}

// RequestFullSync pulls every operation a peer has logged since
// sinceHLCTime and applies each through the local interceptor. This is
// the optional incremental-sync path (since(x), forward compatible
// with a future SyncRequest/SyncResponse RPC): the automatic catch-up
// mechanism run on every newly seen peer is antiEntropy.replay, which
// pushes the full local history outward instead of pulling a suffix
// from one peer. Exposed for callers (see DB.ReplayFrom) that want to
// pull a specific peer's history on demand.
func (e *Engine) RequestFullSync(ctx context.Context, peerAddr string, sinceHLCTime int64) (int, error) {
	e.mu.RLock()
	conn, ok := e.peers[peerAddr]
	e.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("engine: unknown peer %s", peerAddr)
	}

	req := make([]byte, 8)
	for i := 0; i < 8; i++ {
		req[i] = byte(sinceHLCTime >> (8 * i))
	}

	resp, err := callFullSync(ctx, conn, req)
	if err != nil {
		return 0, fmt.Errorf("engine: full sync request: %w", err)
	}

	applied := 0
	pos := 0
	for pos < len(resp) {
		if pos+4 > len(resp) {
			break
		}
		n := int(resp[pos]) | int(resp[pos+1])<<8 | int(resp[pos+2])<<16 | int(resp[pos+3])<<24
		pos += 4
		if pos+n > len(resp) {
			break
		}
		op, err := messages.Decode(resp[pos : pos+n])
		pos += n
		if err != nil {
			e.logger.Warn("full sync: bad frame", zap.Error(err))
			continue
		}
		if e.seen.MarkSeen(op.OpID) {
			continue
		}
		ok, err := e.conn.ApplyRemote(ctx, op)
		if err != nil {
			e.logger.Warn("full sync: apply failed", zap.Error(err))
			continue
		}
		if ok {
			applied++
			e.metrics.RecordApplied()
		}
	}
	e.metrics.AntiEntropyReplaysTotal.Inc()
	e.metrics.AntiEntropyReplayOps.Observe(float64(applied))
	return applied, nil
}

// PeerAddresses returns every peer currently connected.
func (e *Engine) PeerAddresses() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.peers))
	for addr := range e.peers {
		out = append(out, addr)
	}
	return out
}
