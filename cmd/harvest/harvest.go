// Package harvest implements the harvest command: the long-running
// service loop that pages channels into the store.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chanhound/chanhound/internal/config"
	"github.com/chanhound/chanhound/internal/convert"
	"github.com/chanhound/chanhound/internal/database"
	"github.com/chanhound/chanhound/internal/frontier"
	"github.com/chanhound/chanhound/internal/harvest"
	"github.com/chanhound/chanhound/internal/logger"
	"github.com/chanhound/chanhound/internal/source/apiclient"
)

// Command returns the harvest command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Run the harvester",
		Long: `Run the harvester: one catch-up pass over recent history, then the
steady loop of full passes over every channel that is due for a rescan.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx)
		},
	}
}

// run wires the harvester's dependencies and drives it until ctx ends.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
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

	if migrateErr := database.Migrate(ctx, db); migrateErr != nil {
		return fmt.Errorf("failed to migrate database: %w", migrateErr)
	}

	session := apiclient.NewClient(apiclient.WithBaseURL(cfg.Harvester.GatewayURL))
	authors := convert.NewAuthorSet()

	mgr := frontier.NewManager(
		cfg.Harvester.Channels,
		cfg.Harvester.RescanInterval,
		database.NewStore(db),
		convert.NewRecordConverter(),
		session,
		log.WithComponent("frontier"),
		frontier.WithAuthorSet(authors),
	)

	delay, err := harvest.DelayFromConfig(cfg.Harvester.Cadence, cfg.Harvester.FixedSleep)
	if err != nil {
		return fmt.Errorf("failed to resolve harvest cadence: %w", err)
	}

	driver := harvest.NewDriver(
		session,
		mgr,
		cfg.Harvester.FetchLimit,
		delay,
		log.WithComponent("harvest"),
	)

	runErr := driver.Run(ctx)
	log.Info("harvester stopped", "distinct_authors", authors.Count())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
