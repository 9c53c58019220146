// Command wavesync-cli is an operator tool for a WaveSyncDB replica:
// inspect its replication health, force a catch-up sync against a
// peer, or open an interactive SQL shell against its local database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dbFlags holds the flags shared by every subcommand that needs to
// open the local database.
type dbFlags struct {
	path       string
	listenAddr string
	nodeID     string
}

func (f *dbFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "db", "wavesync.db", "path to the sqlite database file")
	cmd.Flags().StringVar(&f.listenAddr, "listen", "", "join the mesh on this address (required for replay, optional for status)")
	cmd.Flags().StringVar(&f.nodeID, "node-id", "", "override this replica's node id (the id persisted in the database if unset)")
}

func main() {
	root := &cobra.Command{
		Use:           "wavesync-cli",
		Short:         "Inspect and operate a WaveSyncDB replica",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(statusCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(shellCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle(err.Error()))
		os.Exit(1)
	}
}
