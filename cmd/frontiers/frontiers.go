// Package frontiers implements the frontiers command: a formatted view
// of per-channel harvest progress for operators.
package frontiers

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chanhound/chanhound/internal/config"
	"github.com/chanhound/chanhound/internal/database"
	"github.com/chanhound/chanhound/internal/domain"
)

// Command returns the frontiers command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "frontiers",
		Short: "List per-channel harvest progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			db, err := database.NewPostgresConnection(database.Config{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close() //nolint:errcheck // close on exit

			frontiers, err := database.NewFrontierRepository(db).GetFrontiers(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list frontiers: %w", err)
			}

			renderTable(cfg.Harvester.Channels, frontiers, cfg.Harvester.RescanInterval)
			return nil
		},
	}
}

// renderTable formats the frontiers of the configured channels.
func renderTable(channels []int64, frontiers map[int64]domain.Frontier, rescanInterval time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Channel", "Cursor", "Last Full Pass", "Scan Due"})

	now := time.Now()
	for _, ch := range channels {
		f := frontiers[ch]

		cursor := "-"
		if f.Cursor != nil {
			cursor = fmt.Sprintf("%d", *f.Cursor)
		}

		lastPass := "never"
		if f.PreviousScanTime > 0 {
			lastPass = time.Unix(f.PreviousScanTime, 0).Format(time.RFC3339)
		}

		due := now.Unix()-f.PreviousScanTime >= int64(rescanInterval/time.Second)

		t.AppendRow(table.Row{ch, cursor, lastPass, due})
	}

	t.Render()
}
