package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cyberintel-backend/lib/configutil"
	"cyberintel-backend/lib/intelstore"
	"cyberintel-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

// Config is the optional repo-local config.json5. Flags override it.
type Config struct {
	Database  intelstore.Config `json:"database"`
	Output    string            `json:"output"`
	UserAgent string            `json:"user_agent"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if os.IsNotExist(err) {
		return Config{}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read config.json5:", err)
		os.Exit(1)
	}
	return cfg
}

func outputDir(cfg Config, flag string) string {
	if flag != "" {
		return flag
	}
	if cfg.Output != "" {
		return cfg.Output
	}
	return "data"
}

// openStore resolves the database location (flag beats config, and the
// fallback is a sqlite file under the output directory) and opens it.
func openStore(cfg Config, dbFlag, output string) intelstore.Store {
	c := cfg.Database
	if dbFlag != "" {
		c = intelstore.Config{File: dbFlag}
	}
	if c.Url == "" && c.File == "" {
		err := os.MkdirAll(output, 0o755)
		if err != nil {
			serviceutil.Fatal("failed to create output directory", err)
		}
		c.File = filepath.Join(output, "cyber_intel.db")
	}
	database, err := intelstore.Open(c)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	return intelstore.NewStore(database)
}

var rootCmd = &cobra.Command{
	Use:   "cyberintel",
	Short: "cyberintel scrapes public cybersecurity intelligence sources into a local database.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
