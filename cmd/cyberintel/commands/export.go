package commands

import (
	"log/slog"

	"cyberintel-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	exportOutput *string
	exportDb     *string
)

func init() {
	exportOutput = exportCmd.Flags().String("output", "", "Directory the JSON files are written to, defaults to data/.")
	exportDb = exportCmd.Flags().String("db", "", "Path of the sqlite database, defaults to <output>/cyber_intel.db.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--output <dir>]",
	Short: "Exports every stored record kind to JSON files.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		output := outputDir(cfg, *exportOutput)
		store := openStore(cfg, *exportDb, output)

		paths, err := store.ExportAll(cmd.Context(), output)
		if err != nil {
			serviceutil.Fatal("json export failed", err)
		}
		for kind, path := range paths {
			slog.Info("exported", "kind", kind, "path", path)
		}
	},
}
