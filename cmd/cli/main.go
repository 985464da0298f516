package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/container"
	"github.com/zfogg/vlogbook/backend/internal/logger"
)

var (
	verbose bool
	output  string = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:   "vlogbook",
	Short: "Vlogbook operator CLI",
	Long: `Vlogbook operator CLI works directly against the configured database.
Use it for migrations, seeding, counter repair and support overrides.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return logger.Initialize(logger.Options{Level: level, File: "cli.log", Console: verbose})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL and debug output to stdout")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(recountCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(deleteUserCmd)
}

// withContainer loads configuration, builds the services and tears them down after fn
func withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := container.Build(ctx, cfg, container.Options{VerboseSQL: verbose})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Cleanup(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}()
	return fn(c)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
