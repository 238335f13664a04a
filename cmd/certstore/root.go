package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/msallam/certstore/internal/config"
	"github.com/msallam/certstore/internal/fees"
	"github.com/msallam/certstore/internal/store"
)

// openStore loads configuration and opens the data image. Callers own Close.
func openStore() (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return store.Open(cfg.DataDir,
		store.WithLogger(logger),
		store.WithSaveDelay(cfg.SaveDelay),
	)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "certstore",
		Short:         "Inspect and maintain a certificate data image",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStatsCmd(), newListCmd(), newSearchCmd(), newFeesCmd(), newFlushCmd())
	return root
}

func newStatsCmd() *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return printJSON(s.Stats(store.StatsOptions{Month: time.Month(month), Year: year}))
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: current)")
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	return cmd
}

func newListCmd() *cobra.Command {
	opts := store.ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			certs, err := s.List(opts)
			if err != nil {
				return err
			}
			total, err := s.Count(opts)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"total": total, "certificates": certs})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "active", "status filter (active, deleted, empty for all)")
	cmd.Flags().BoolVar(&opts.ModifiedOnly, "modified", false, "only edited certificates")
	cmd.Flags().StringVar(&opts.Activity, "activity", "", "substring filter on activity")
	cmd.Flags().StringVar(&opts.Name, "name", "", "substring filter on name")
	cmd.Flags().StringVar(&opts.Location, "location", "", "substring filter on location")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search active certificates by activity, name or location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			certs, err := s.Search(args[0], limit, offset)
			if err != nil {
				return err
			}
			return printJSON(certs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset")
	return cmd
}

func newFeesCmd() *cobra.Command {
	var in fees.Input
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Compute the fee breakdown for a prospective certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(fees.Calculate(in))
		},
	}
	cmd.Flags().IntVar(&in.Persons, "persons", 1, "persons count")
	cmd.Flags().Float64Var(&in.Area, "area", 0, "establishment area in m²")
	cmd.Flags().Float64Var(&in.Consultant, "consultant", 0, "consultant fee")
	cmd.Flags().Float64Var(&in.Evacuation, "evacuation", 0, "evacuation fee")
	cmd.Flags().Float64Var(&in.Inspection, "inspection", 0, "inspection fee")
	return cmd
}

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Rewrite the data image on disk (also applies pending schema upgrades)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Flush(); err != nil {
				return err
			}
			fmt.Println("data image flushed")
			return nil
		},
	}
}
