// Package cmd implements the command-line interface for chanhound.
// It provides the root command and subcommands for running the
// harvester and inspecting its progress.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chanhound/chanhound/cmd/frontiers"
	"github.com/chanhound/chanhound/cmd/harvest"
	"github.com/chanhound/chanhound/internal/config"
)

const version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// rootCmd represents the root command for the chanhound CLI.
	rootCmd = &cobra.Command{
		Use:   "chanhound",
		Short: "An incremental channel message harvester",
		Long: `chanhound incrementally harvests messages from append-only chat
channels into PostgreSQL, tracking per-channel progress so restarts
resume where they left off.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Parse flags early so --config and --debug apply before commands run.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := config.InitializeViper(cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if debug {
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml, ./config/config.yaml, or /etc/chanhound/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chanhound version %s\n", version)
		},
	})

	rootCmd.AddCommand(harvest.Command())
	rootCmd.AddCommand(frontiers.Command())
}
