// Command metro generates deterministic procedural cities and their
// histories, and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/metro/internal/config"
	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/logging"
	"github.com/talgya/metro/internal/persistence"
)

// app carries state shared by every subcommand.
type app struct {
	cfg       *config.Config
	logLevel  string
	logFormat string
	dbPath    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "metro",
		Short:        "Deterministic procedural city generator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = a.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = a.logFormat
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = a.dbPath
			}
			if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "auto", "log format: auto, text or json")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default METRO_DB_PATH)")

	root.AddCommand(a.generateCmd())
	root.AddCommand(a.timelineCmd())
	root.AddCommand(a.evolveCmd())
	root.AddCommand(a.seedsCmd())
	root.AddCommand(a.importCmd())
	root.AddCommand(a.serveCmd())
	return root
}

// masterSeed returns the --seed flag value when given, or a fresh seed from
// random.org or crypto/rand.
func (a *app) masterSeed(cmd *cobra.Command, flagValue uint32) uint32 {
	if cmd.Flags().Changed("seed") {
		return flagValue
	}
	seed := entropy.SeedFromSource(cmd.Context(), entropy.NewClient(a.cfg.RandomOrgKey))
	fmt.Fprintf(cmd.ErrOrStderr(), "seed: %d\n", seed)
	return seed
}

func (a *app) openDB() (*persistence.DB, error) {
	if dir := filepath.Dir(a.cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return persistence.Open(a.cfg.DBPath)
}
