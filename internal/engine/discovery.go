package engine

import (
	"context"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// discovery implements LAN-local zero-config peer discovery over UDP
// multicast: every node periodically announces its own grpc listen
// address on a multicast group tagged with the mesh topic, and learns
// peer addresses by listening on the same group. This replaces the
// original implementation's libp2p mdns discovery, which has no
// dependency-ecosystem analog here.
type discovery struct {
	groupAddr  *net.UDPAddr
	topic      string
	selfAddr   string
	announceEvery time.Duration
	logger     *zap.Logger
	onDiscover func(addr string)
}

func newDiscovery(multicastAddr, topic, selfAddr string, announceEvery time.Duration, logger *zap.Logger, onDiscover func(string)) (*discovery, error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", multicastAddr)
	if err != nil {
		return nil, err
	}
	return &discovery{
		groupAddr:     groupAddr,
		topic:         topic,
		selfAddr:      selfAddr,
		announceEvery: announceEvery,
		logger:        logger,
		onDiscover:    onDiscover,
	}, nil
}

// Run announces selfAddr and listens for peer announcements until ctx
// is cancelled. It never returns a non-nil error on graceful shutdown.
func (d *discovery) Run(ctx context.Context) error {
	listener, err := net.ListenMulticastUDP("udp4", nil, d.groupAddr)
	if err != nil {
		return err
	}
	defer listener.Close()

	announceConn, err := net.DialUDP("udp4", nil, d.groupAddr)
	if err != nil {
		return err
	}
	defer announceConn.Close()

	go d.listen(ctx, listener)
	d.announce(ctx, announceConn)
	return nil
}

func (d *discovery) announce(ctx context.Context, conn *net.UDPConn) {
	ticker := time.NewTicker(d.announceEvery)
	defer ticker.Stop()

	msg := []byte(d.topic + "|" + d.selfAddr)
	conn.Write(msg)

	for {
		select {
		case <-ticker.C:
			conn.Write(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (d *discovery) listen(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, 1024)
	for {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err != nil {
			continue
		}

		topic, addr, ok := strings.Cut(string(buf[:n]), "|")
		if !ok || topic != d.topic || addr == d.selfAddr {
			continue
		}
		d.logger.Debug("discovered peer via multicast", zap.String("addr", addr))
		d.onDiscover(addr)
	}
}
