package commands

import (
	"os"
	"strings"
	"time"

	"cyberintel-backend/lib/intelstore"
	"cyberintel-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	queryDb     *string
	queryLimit  *int
	queryOffset *int

	queryCve     *string
	querySource  *string
	queryName    *string
	queryCountry *string
)

func init() {
	queryDb = queryCmd.PersistentFlags().String("db", "", "Path of the sqlite database, defaults to data/cyber_intel.db.")
	queryLimit = queryCmd.PersistentFlags().Int("limit", 25, "Maximum rows to print, 0 for all of them.")
	queryOffset = queryCmd.PersistentFlags().Int("offset", 0, "Rows to skip before printing.")

	queryCve = queryVulnsCmd.Flags().String("cve", "", "Filter by CVE id.")
	querySource = queryCmd.PersistentFlags().String("source", "", "Filter by source name.")
	queryName = queryActorsCmd.Flags().String("name", "", "Filter by group name.")
	queryCountry = queryActorsCmd.Flags().String("country", "", "Filter by attributed country.")

	queryCmd.AddCommand(queryVulnsCmd)
	queryCmd.AddCommand(queryAlertsCmd)
	queryCmd.AddCommand(queryActorsCmd)
	queryCmd.AddCommand(queryIncidentsCmd)
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Prints stored records as a table.",
}

func queryStore() intelstore.Store {
	cfg := readConfig()
	return openStore(cfg, *queryDb, outputDir(cfg, ""))
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func tableDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

var queryVulnsCmd = &cobra.Command{
	Use:   "vulnerabilities [--cve <id>] [--source <name>]",
	Short: "Prints stored vulnerabilities, most recently added first.",
	Run: func(cmd *cobra.Command, args []string) {
		store := queryStore()
		vulns, err := store.Vulnerabilities(cmd.Context(), intelstore.VulnerabilityQuery{
			CveId:  *queryCve,
			Source: *querySource,
			Limit:  *queryLimit,
			Offset: *queryOffset,
		})
		if err != nil {
			serviceutil.Fatal("query failed", err)
		}

		t := newTable(table.Row{"id", "cve", "vendor", "product", "name", "added", "due", "source"})
		for _, v := range vulns {
			t.AppendRow(table.Row{
				v.Id, v.CveId, v.VendorProject, v.Product, v.VulnerabilityName,
				tableDate(v.DateAdded), tableDate(v.DueDate), v.Source,
			})
		}
		t.Render()
	},
}

var queryAlertsCmd = &cobra.Command{
	Use:   "alerts [--source <name>]",
	Short: "Prints stored alerts, most recently published first.",
	Run: func(cmd *cobra.Command, args []string) {
		store := queryStore()
		alerts, err := store.Alerts(cmd.Context(), intelstore.AlertQuery{
			Source: *querySource,
			Limit:  *queryLimit,
			Offset: *queryOffset,
		})
		if err != nil {
			serviceutil.Fatal("query failed", err)
		}

		t := newTable(table.Row{"id", "alert", "title", "published", "source"})
		for _, a := range alerts {
			t.AppendRow(table.Row{a.Id, a.AlertId, a.Title, tableDate(a.PublishedDate), a.Source})
		}
		t.Render()
	},
}

var queryActorsCmd = &cobra.Command{
	Use:   "threat-actors [--name <group>] [--country <country>]",
	Short: "Prints stored threat actors in name order.",
	Run: func(cmd *cobra.Command, args []string) {
		store := queryStore()
		actors, err := store.ThreatActors(cmd.Context(), intelstore.ThreatActorQuery{
			Name:    *queryName,
			Country: *queryCountry,
			Limit:   *queryLimit,
			Offset:  *queryOffset,
		})
		if err != nil {
			serviceutil.Fatal("query failed", err)
		}

		t := newTable(table.Row{"id", "name", "aliases", "country", "first seen", "source"})
		for _, a := range actors {
			t.AppendRow(table.Row{
				a.Id, a.Name, strings.Join(a.Aliases, ", "),
				a.Country, tableDate(a.FirstSeen), a.Source,
			})
		}
		t.Render()
	},
}

var queryIncidentsCmd = &cobra.Command{
	Use:   "incidents [--source <name>]",
	Short: "Prints stored incidents, most recent first.",
	Run: func(cmd *cobra.Command, args []string) {
		store := queryStore()
		incidents, err := store.Incidents(cmd.Context(), intelstore.IncidentQuery{
			Source: *querySource,
			Limit:  *queryLimit,
			Offset: *queryOffset,
		})
		if err != nil {
			serviceutil.Fatal("query failed", err)
		}

		t := newTable(table.Row{"id", "title", "date", "vector", "sectors", "source"})
		for _, in := range incidents {
			t.AppendRow(table.Row{
				in.Id, in.Title, tableDate(in.IncidentDate), in.AttackVector,
				strings.Join(in.TargetSectors, ", "), in.Source,
			})
		}
		t.Render()
	},
}
