package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/metrics"
	"github.com/arjunv/wavesyncdb/pkg/wavesync"
)

func statusCmd() *cobra.Command {
	var f dbFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show replication health for a local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			opts := []wavesync.Option{}
			if f.listenAddr != "" {
				opts = append(opts, wavesync.WithListenAddr(f.listenAddr))
			}
			if f.nodeID != "" {
				nid, err := ids.ParseNodeID(f.nodeID)
				if err != nil {
					return fmt.Errorf("invalid --node-id: %w", err)
				}
				opts = append(opts, wavesync.WithNodeID(nid))
			}

			db, err := wavesync.Open(ctx, f.path, opts...)
			if err != nil {
				return fmt.Errorf("open %s: %w", f.path, err)
			}
			defer db.Close()

			// Give the gossip server a moment to start before reading
			// peer state. No static peers or multicast group are
			// configured here, so the peer list holds only peers added
			// by this process.
			if f.listenAddr != "" {
				time.Sleep(200 * time.Millisecond)
			}

			peers := db.Peers()
			reader := metrics.NewMetricsReader(db.Metrics())
			oplogSize, _ := reader.GetOplogSize()
			drift, _ := reader.GetHLCDrift()
			avgRTT := reader.GetAveragePeerRTT(peers)

			fmt.Print(keyValues(
				kv{"node id", db.NodeID().String()},
				kv{"db path", f.path},
				kv{"mesh joined", boolStyle(f.listenAddr != "")},
				kv{"peer count", fmt.Sprintf("%d", len(peers))},
				kv{"avg peer rtt", fmt.Sprintf("%.1fms", avgRTT*1000)},
				kv{"oplog size", fmt.Sprintf("%.0f", oplogSize)},
				kv{"hlc drift", fmt.Sprintf("%.3fs", drift)},
			))
			for _, p := range peers {
				fmt.Printf("  - %s\n", p)
			}
			return nil
		},
	}

	f.bind(cmd)
	return cmd
}
