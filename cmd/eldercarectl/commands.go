package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldercare-platform/eldercare/internal/adapters/dataset"
	"github.com/eldercare-platform/eldercare/internal/adapters/repository"
	service "github.com/eldercare-platform/eldercare/internal/app"
	"github.com/eldercare-platform/eldercare/internal/config"
	"github.com/eldercare-platform/eldercare/internal/domain/scoring"
	"github.com/eldercare-platform/eldercare/internal/loadgen"
	"github.com/eldercare-platform/eldercare/internal/platform"
	"github.com/eldercare-platform/eldercare/pkg/logger"
)

// cli carries what PersistentPreRunE loaded to the subcommands.
type cli struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "eldercarectl",
		Short:        "Administer the eldercare platform",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := platform.Init(cmd.Context(), "eldercarectl")
			if err != nil {
				return err
			}
			c.cfg, c.log = cfg, log
			return nil
		},
	}
	root.AddCommand(
		c.migrateCmd(),
		c.seedCmd(),
		c.loadgenCmd(),
		c.classifyCmd(),
		c.importScoresCmd(),
	)
	return root
}

func (c *cli) openStore(cmd *cobra.Command) (*repository.PostgresStore, error) {
	store, err := platform.OpenStore(cmd.Context(), c.cfg, c.log)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, config.ErrNoDatabase
	}
	return store, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo users if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc, err := service.New(nil, service.WithStore(store), service.WithLogger(c.log))
			if err != nil {
				return err
			}
			n, err := svc.SeedDemoUsers(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d demo users\n", n, len(service.DemoUsers))
			return nil
		},
	}
}

func (c *cli) loadgenCmd() *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Post synthetic readings to the ingestion service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadgen.Run(cmd.Context(), cfg, c.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"submitted=%d accepted=%d duplicate=%d throttled=%d rejected=%d failed=%d duration=%s rate=%.1f/s\n",
				stats.Submitted, stats.Accepted, stats.Duplicate, stats.Throttled, stats.Rejected, stats.Failed,
				stats.Duration.Round(time.Millisecond), stats.PerSecond())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:8010", "ingestion service base URL")
	f.IntVar(&cfg.Readings, "readings", 1000, "number of readings to send")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent senders")
	f.IntVar(&cfg.Devices, "devices", 10, "distinct device UIDs")
	f.StringVar(&cfg.DevicePrefix, "device-prefix", "loadgen-dev", "device UID prefix")
	f.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "per-request timeout")
	f.IntVar(&cfg.Retries, "retries", 1, "retries on transport errors and 5xx")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated readings to this JSON file")
	f.BoolVar(&cfg.SkipHealth, "skip-health", false, "skip the /health check")
	f.Float64Var(&cfg.Rate, "rate", 0, "readings per second across all workers (0 = unlimited)")
	return cmd
}

func (c *cli) classifyCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "classify <merged_scored.csv>",
		Short: "Classify subjects of a scored CSV into risk levels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			t, err := dataset.ReadCSV(dataset.MergedScored, f)
			if err != nil {
				return err
			}
			svc, err := service.New(dataset.NewStatic(t), service.WithOffline(true), service.WithLogger(c.log))
			if err != nil {
				return err
			}
			levels, err := svc.ClassifyRisk(cmd.Context(), method)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(levels)
		},
	}
	cmd.Flags().StringVar(&method, "method", "quantile", "thresholding method: quantile or fixed")
	return cmd
}

func (c *cli) importScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-scores <merged_scored.csv>",
		Short: "Score the rows of a merged CSV and store them as user risk scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			t, err := dataset.ReadCSV(dataset.MergedScored, f)
			if err != nil {
				return err
			}
			store, err := c.openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scorer := scoring.New(
				scoring.WithIndexWeight(c.cfg.ScoreIndexWeight),
				scoring.WithFeatureWeights(c.cfg.ScoreFeatureWeights),
			)
			svc, err := service.New(nil, service.WithStore(store), service.WithScorer(scorer), service.WithLogger(c.log))
			if err != nil {
				return err
			}
			res, err := svc.ImportRiskScores(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported=%d skipped=%d\n", res.Imported, res.Skipped)
			return nil
		},
	}
}
