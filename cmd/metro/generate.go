package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/persistence"
	"github.com/talgya/metro/internal/population"
	"github.com/talgya/metro/internal/temporal"
)

// output writes v as JSON to path, or to w when path is empty or "-".
func output(w io.Writer, path string, pretty bool, v any) error {
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func (a *app) generateCmd() *cobra.Command {
	var (
		pop    int
		size   float64
		seed   uint32
		out    string
		pretty bool
		save   bool
		seeds  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a static city snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := city.Params{Population: pop, CitySize: size, Seed: a.masterSeed(cmd, seed)}
			start := time.Now()
			snap, tree, err := city.GenerateWithSeeds(p)
			if err != nil {
				return err
			}
			took := time.Since(start)
			stamped := snap.Stamped(time.Now())

			id := city.ID(p)
			if save {
				if err := a.store(func(db *persistence.DB) error {
					if err := db.SaveCity(id, &stamped); err != nil {
						return err
					}
					return db.RecordRun(persistence.NewRun("city", id, p.Seed, took))
				}); err != nil {
					return err
				}
				slog.Info("city saved", "id", id, "db", a.cfg.DBPath)
			}

			printCitySummary(cmd.ErrOrStderr(), id, snap, took)
			if seeds {
				return output(cmd.OutOrStdout(), out, pretty, map[string]any{"city": stamped, "seed_tree": tree})
			}
			return output(cmd.OutOrStdout(), out, pretty, stamped)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&pop, "population", "p", 50_000, "city population")
	f.Float64VarP(&size, "size", "s", 8, "city side length in km")
	f.Uint32Var(&seed, "seed", 0, "master seed (random when omitted)")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&pretty, "pretty", false, "indent JSON output")
	f.BoolVar(&save, "save", false, "store the snapshot in the database")
	f.BoolVar(&seeds, "seed-tree", false, "include the derived seed tree in the output")
	return cmd
}

func (a *app) timelineCmd() *cobra.Command {
	var (
		opts     temporal.Options
		erasFile string
		out      string
		pretty   bool
		save     bool
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Generate a city's history from founding to the present",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Seed = a.masterSeed(cmd, opts.Seed)
			if !cmd.Flags().Changed("year-step") {
				opts.YearStep = a.cfg.Generator.YearStep
			}
			if !cmd.Flags().Changed("total-years") {
				opts.TotalYears = a.cfg.Generator.TotalYears
			}
			if !cmd.Flags().Changed("workers") {
				opts.Workers = a.cfg.Generator.Workers
			}
			if erasFile == "" {
				erasFile = a.cfg.Generator.ErasFile
			}
			if erasFile != "" {
				eras, err := temporal.LoadEras(erasFile)
				if err != nil {
					return err
				}
				opts.Eras = eras
			}

			start := time.Now()
			tl, err := temporal.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			took := time.Since(start)

			if save {
				if err := a.store(func(db *persistence.DB) error {
					if err := db.SaveTimeline(tl); err != nil {
						return err
					}
					return db.RecordRun(persistence.NewRun("timeline", tl.Metadata.ID, opts.Seed, took))
				}); err != nil {
					return err
				}
				slog.Info("timeline saved", "id", tl.Metadata.ID, "db", a.cfg.DBPath)
			}

			printTimelineSummary(cmd.ErrOrStderr(), tl, took)
			return output(cmd.OutOrStdout(), out, pretty, tl)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Population, "population", "p", 50_000, "target population")
	f.Float64VarP(&opts.CitySize, "size", "s", 8, "city side length in km")
	f.Uint32Var(&opts.Seed, "seed", 0, "master seed (random when omitted)")
	f.IntVar(&opts.YearStep, "year-step", temporal.DefaultYearStep, "years between frames")
	f.IntVar(&opts.TotalYears, "total-years", temporal.DefaultTotalYears, "last sampled year")
	f.IntVar(&opts.Workers, "workers", 0, "parallel years (0 = GOMAXPROCS)")
	f.StringVar(&erasFile, "eras", "", "YAML era table (default METRO_ERAS_FILE or built-in)")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&pretty, "pretty", false, "indent JSON output")
	f.BoolVar(&save, "save", false, "store the timeline in the database")
	return cmd
}

func (a *app) evolveCmd() *cobra.Command {
	var (
		pop    int
		seed   uint32
		years  int
		model  string
		out    string
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Simulate population aging, births and deaths year by year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			growth, err := population.ModelByName(model)
			if err != nil {
				return err
			}
			s := a.masterSeed(cmd, seed)
			st, err := population.New(s, pop)
			if err != nil {
				return err
			}
			summaries, err := population.Evolve(cmd.Context(), st, growth, s, years)
			if err != nil {
				return err
			}
			printEvolveSummary(cmd.ErrOrStderr(), pop, summaries)
			return output(cmd.OutOrStdout(), out, pretty, map[string]any{
				"seed":  s,
				"model": model,
				"years": summaries,
				"final": st,
			})
		},
	}
	f := cmd.Flags()
	f.IntVarP(&pop, "population", "p", 10_000, "initial population")
	f.Uint32Var(&seed, "seed", 0, "master seed (random when omitted)")
	f.IntVarP(&years, "years", "y", 25, "years to simulate")
	f.StringVar(&model, "model", "default", "growth model: default or static")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

// store opens the database for the duration of fn.
func (a *app) store(fn func(db *persistence.DB) error) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func printCitySummary(w io.Writer, id string, snap *city.Snapshot, took time.Duration) {
	var roadKm float64
	for _, r := range snap.Infrastructure.Roads {
		roadKm += r.Length()
	}
	fmt.Fprintf(w, "%s: %s people on %s km², %d districts, %d roads (%s km), %d services (%s)\n",
		id,
		humanize.Comma(int64(snap.Population)),
		humanize.FormatFloat("#,###.##", snap.Area),
		len(snap.Districts),
		len(snap.Infrastructure.Roads),
		humanize.FormatFloat("#,###.#", roadKm),
		len(snap.Infrastructure.Services),
		took.Round(time.Microsecond),
	)
}

func printTimelineSummary(w io.Writer, tl *temporal.Timeline, took time.Duration) {
	fmt.Fprintf(w, "%s: %d frames over %d years (%s)\n",
		tl.Metadata.ID, len(tl.Frames), tl.Metadata.TotalYears, took.Round(time.Millisecond))
	for _, f := range tl.Frames {
		fmt.Fprintf(w, "  year %5d  %-14s %10s people  %3d districts\n",
			f.Year, f.Era, humanize.Comma(int64(f.Population)), len(f.Districts))
	}
}

func printEvolveSummary(w io.Writer, initial int, years []population.Summary) {
	if len(years) == 0 {
		return
	}
	last := years[len(years)-1]
	births, deaths := 0, 0
	for _, y := range years {
		births += y.Births
		deaths += y.Deaths
	}
	fmt.Fprintf(w, "%s → %s after %d years (%s births, %s deaths, workforce %s)\n",
		humanize.Comma(int64(initial)),
		humanize.Comma(int64(last.Population)),
		len(years),
		humanize.Comma(int64(births)),
		humanize.Comma(int64(deaths)),
		humanize.Comma(int64(last.Workforce.Total)),
	)
}
