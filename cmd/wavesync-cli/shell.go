package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/pkg/wavesync"
)

func shellCmd() *cobra.Command {
	var f dbFlags

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive SQL shell against the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          prompt(),
				HistoryFile:     "",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("readline: %w", err)
			}
			defer rl.Close()

			fmt.Println(accentStyle.Render("wavesync-cli shell") + " — node " + db.NodeID().String())
			fmt.Println("type SQL statements, or \\peers / \\exit")

			return runShell(ctx, db, rl)
		},
	}

	f.bind(cmd)
	return cmd
}

func runShell(ctx context.Context, db *wavesync.DB, rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "\\exit", "\\quit":
			return nil
		case "\\peers":
			for _, p := range db.Peers() {
				fmt.Println("  " + p)
			}
			continue
		}

		if err := execStatement(ctx, db, line); err != nil {
			fmt.Println(errStyle(err.Error()))
		}
	}
}

func execStatement(ctx context.Context, db *wavesync.DB, stmt string) error {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "PRAGMA") {
		return runQuery(ctx, db, stmt)
	}
	result, err := db.Exec(ctx, stmt)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	fmt.Println(successStyle.Render(fmt.Sprintf("ok, %d row(s) affected", affected)))
	return nil
}

func runQuery(ctx context.Context, db *wavesync.DB, query string) error {
	rows, err := db.Conn().QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(cols, " | "))

	values := make([]any, len(cols))
	scanDest := make([]any, len(cols))
	for i := range values {
		scanDest[i] = &values[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return err
		}
		parts := make([]string, len(cols))
		for i, v := range values {
			parts[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(parts, " | "))
		n++
	}
	fmt.Println(labelStyle.Render(fmt.Sprintf("(%d rows)", n)))
	return rows.Err()
}
