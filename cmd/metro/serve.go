package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/metro/internal/api"
	"github.com/talgya/metro/internal/cache"
	"github.com/talgya/metro/internal/temporal"
)

func (a *app) serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx := cmd.Context()

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("database opened", "path", cfg.DBPath)

			store, err := cache.New(ctx, cache.Options{
				RedisEnabled: cfg.Redis.Enabled,
				RedisURL:     cfg.Redis.URL,
				MaxEntries:   cfg.CacheMaxEntries,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			eras := temporal.DefaultEras()
			if cfg.Generator.ErasFile != "" {
				if eras, err = temporal.LoadEras(cfg.Generator.ErasFile); err != nil {
					return err
				}
				slog.Info("era table loaded", "path", cfg.Generator.ErasFile, "eras", len(eras))
			}
			if err := db.SaveMeta("last_start", cmd.Root().Name()+" "+cfg.Addr()); err != nil {
				slog.Warn("failed to record start", "error", err)
			}

			srv := &api.Server{
				DB:          db,
				Cache:       store,
				CacheTTL:    cfg.CacheTTL,
				AdminKey:    cfg.AdminKey,
				Eras:        eras,
				CORSOrigins: cfg.Server.CORSOrigins,
				Defaults: api.Defaults{
					Seed:       cfg.Generator.DefaultSeed,
					YearStep:   cfg.Generator.YearStep,
					TotalYears: cfg.Generator.TotalYears,
					Workers:    cfg.Generator.Workers,
				},
				RateLimit: api.RateLimitConfig{
					Enabled:           cfg.RateLimit.Enabled,
					RequestsPerSecond: cfg.RateLimit.RPS,
					Burst:             cfg.RateLimit.Burst,
				},
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			return srv.ListenAndServe(ctx, cfg.Addr())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default METRO_PORT)")
	return cmd
}
