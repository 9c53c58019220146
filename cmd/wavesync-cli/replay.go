package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/pkg/wavesync"
)

func replayCmd() *cobra.Command {
	var f dbFlags
	var peer string
	var since int64

	cmd := &cobra.Command{
		Use:   "replay --peer addr:port",
		Short: "Force a full sync from a peer and apply anything missed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if peer == "" {
				return fmt.Errorf("--peer is required")
			}
			if f.listenAddr == "" {
				return fmt.Errorf("--listen is required to replay (need a mesh connection)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			opts := []wavesync.Option{
				wavesync.WithListenAddr(f.listenAddr),
				wavesync.WithStaticPeers([]string{peer}),
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

			applied, err := db.ReplayFrom(ctx, peer, since)
			if err != nil {
				return fmt.Errorf("replay from %s: %w", peer, err)
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("applied %d operation(s) from %s", applied, peer)))
			return nil
		},
	}

	f.bind(cmd)
	cmd.Flags().StringVar(&peer, "peer", "", "peer address to replay from (required)")
	cmd.Flags().Int64Var(&since, "since", 0, "only replay operations newer than this HLC physical time (unix nanoseconds)")
	return cmd
}
