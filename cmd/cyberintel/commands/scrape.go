package commands

import (
	"context"
	"log/slog"
	"time"

	"cyberintel-backend/lib/fetch"
	"cyberintel-backend/lib/intelstore"
	"cyberintel-backend/lib/scrapers/intel"
	"cyberintel-backend/lib/serviceutil"
	"cyberintel-backend/lib/telemetry"
	"cyberintel-backend/services/collector"
	"cyberintel-backend/services/report"

	"github.com/spf13/cobra"
)

var (
	scrapeSources *[]string
	scrapeReport  *bool
	scrapeEvery   *float64
	scrapeOutput  *string
	scrapeDb      *string
)

func init() {
	scrapeSources = scrapeCmd.Flags().StringSlice("sources", nil, "Source keys to scrape (e.g. us-cert, mitre), all of them when unset.")
	scrapeReport = scrapeCmd.Flags().Bool("report", false, "Generate an HTML report after the scrape.")
	scrapeEvery = scrapeCmd.Flags().Float64("every", 0, "Re-run the scrape every N hours until interrupted.")
	scrapeOutput = scrapeCmd.Flags().String("output", "", "Directory JSON exports and reports are written to, defaults to data/.")
	scrapeDb = scrapeCmd.Flags().String("db", "", "Path of the sqlite database, defaults to <output>/cyber_intel.db.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--sources <names>] [--report] [--every <hours>]",
	Short: "Scrapes the configured intelligence sources and persists the results.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		output := outputDir(cfg, *scrapeOutput)
		store := openStore(cfg, *scrapeDb, output)

		client, err := fetch.NewClient(fetch.Options{UserAgent: cfg.UserAgent})
		if err != nil {
			serviceutil.Fatal("failed to initialize http client", err)
		}
		service := collector.NewService(store, client, intel.Registry())

		cycle := func(ctx context.Context) error {
			t1 := time.Now()
			outcomes, err := service.Run(ctx, *scrapeSources)
			if err != nil {
				return err
			}
			logSummary(ctx, outcomes, time.Since(t1))

			_, err = store.ExportAll(ctx, output)
			if err != nil {
				slog.ErrorContext(ctx, "json export failed", "err", err)
			}
			if *scrapeReport {
				path, err := report.Generate(ctx, store, output)
				if err != nil {
					slog.ErrorContext(ctx, "report generation failed", "err", err)
				} else {
					slog.InfoContext(ctx, "report written", "path", path)
				}
			}
			return nil
		}

		if *scrapeEvery <= 0 {
			err := cycle(cmd.Context())
			if err != nil {
				serviceutil.Fatal("scrape cycle failed", err)
			}
			return
		}

		interval := time.Duration(*scrapeEvery * float64(time.Hour))
		slog.Info("running in repeat mode", "interval", interval.String())

		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)
		collector.RunEvery(ctx, interval, time.Minute, func(ctx context.Context) {
			err := cycle(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "scrape cycle failed", "err", err)
			}
		})
	},
}

func logSummary(ctx context.Context, outcomes map[string]collector.Outcome, elapsed time.Duration) {
	total := map[intelstore.Kind]int{}
	failures := 0
	for name, outcome := range outcomes {
		for kind, n := range outcome.Saved {
			total[kind] += n
		}
		for kind, err := range outcome.Failures {
			failures++
			slog.WarnContext(ctx, "source degraded", "source", name, "kind", kind, "err", err)
		}
	}
	slog.InfoContext(ctx, "scrape cycle finished",
		"seconds", elapsed.Seconds(),
		"sources", len(outcomes),
		"vulnerabilities", total[intelstore.KindVulnerability],
		"alerts", total[intelstore.KindAlert],
		"threat_actors", total[intelstore.KindThreatActor],
		"incidents", total[intelstore.KindIncident],
		"failures", failures,
	)
}
