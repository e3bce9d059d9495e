package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/entropy"
	"github.com/talgya/metro/internal/persistence"
)

func (a *app) seedsCmd() *cobra.Command {
	var (
		categories []string
		variation  string
	)
	cmd := &cobra.Command{
		Use:   "seeds <master-seed>",
		Short: "Show the sub-seeds derived from a master seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("master seed %q: %w", args[0], err)
			}
			master := uint32(v)

			if variation != "" {
				fmt.Fprintln(cmd.OutOrStdout(), entropy.Variation(master, "master", variation))
				return nil
			}
			if len(categories) > 0 {
				for _, c := range categories {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c, entropy.DeriveSeed(master, c))
				}
				return nil
			}
			return output(cmd.OutOrStdout(), "", true, entropy.StandardTree(master))
		},
	}
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "derive only these categories")
	cmd.Flags().StringVar(&variation, "variation", "", "print the variant master seed with this name")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import snapshots from a JSON object of id to snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var docs map[string]json.RawMessage
			if err := json.Unmarshal(data, &docs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			start := time.Now()
			snaps := make(map[string]*city.Snapshot, len(docs))
			for id, raw := range docs {
				snap, err := city.DecodeSnapshot(raw)
				if err != nil {
					return fmt.Errorf("city %s: %w", id, err)
				}
				snaps[id] = snap
			}

			err = a.store(func(db *persistence.DB) error {
				if err := db.ImportCities(snaps); err != nil {
					return err
				}
				return db.RecordRun(persistence.NewRun("import", args[0], 0, time.Since(start)))
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d cities into %s\n", len(snaps), a.cfg.DBPath)
			return nil
		},
	}
}
