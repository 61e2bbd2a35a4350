package report

import (
	"context"
	"os"
	"testing"
	"time"

	"cyberintel-backend/lib/intelstore"
	"cyberintel-backend/lib/intelstore/db"
	"cyberintel-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func timeAt(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestGenerate(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "report",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := intelstore.NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := store.Save(ctx, intelstore.KindVulnerability, []intelstore.Record{
		intelstore.Vulnerability{
			CveId:             "CVE-2024-0001",
			VendorProject:     "Acme",
			Product:           "Router",
			VulnerabilityName: "Auth bypass",
			DateAdded:         timeAt("2024-03-01"),
			Source:            "US-CERT",
		},
	})
	require.NoError(t, err)
	err = store.Save(ctx, intelstore.KindAlert, []intelstore.Record{
		intelstore.Alert{
			AlertId: "AA24-109A",
			Title:   "Active exploitation <script>alert(1)</script>",
			Url:     "https://www.cisa.gov/uscert/ncas/alerts/aa24-109a",
			Source:  "US-CERT",
		},
	})
	require.NoError(t, err)

	dir := t.TempDir()
	path, err := Generate(ctx, store, dir)
	require.NoError(t, err)
	require.Regexp(t, `cyber_intel_report_\d{8}_\d{6}\.html$`, path)

	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(blob)

	require.Contains(t, page, "CVE-2024-0001")
	require.Contains(t, page, "AA24-109A")
	require.Contains(t, page, "2024-03-01")
	// a missing date renders as a placeholder, not a zero time
	require.Contains(t, page, "unknown")
	// record text is escaped on the way into the page
	require.NotContains(t, page, "<script>alert(1)</script>")

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestGenerateEmptyStore(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "report",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := intelstore.NewStore(res.DB)

	dir := t.TempDir()
	path, err := Generate(context.Background(), store, dir)
	require.NoError(t, err)

	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(blob), "No vulnerabilities collected yet.")
	require.Contains(t, string(blob), "No alerts collected yet.")
}
