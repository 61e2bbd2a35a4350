package commands

import (
	"log/slog"

	"cyberintel-backend/lib/serviceutil"
	"cyberintel-backend/services/report"

	"github.com/spf13/cobra"
)

var (
	reportOutput *string
	reportDb     *string
)

func init() {
	reportOutput = reportCmd.Flags().String("output", "", "Directory the report is written to, defaults to data/.")
	reportDb = reportCmd.Flags().String("db", "", "Path of the sqlite database, defaults to <output>/cyber_intel.db.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--output <dir>]",
	Short: "Generates an HTML report from previously collected data.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		output := outputDir(cfg, *reportOutput)
		store := openStore(cfg, *reportDb, output)

		path, err := report.Generate(cmd.Context(), store, output)
		if err != nil {
			serviceutil.Fatal("report generation failed", err)
		}
		slog.Info("report written", "path", path)
	},
}
