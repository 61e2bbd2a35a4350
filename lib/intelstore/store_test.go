package intelstore

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"testing"
	"time"

	"cyberintel-backend/lib/intelstore/db"
	"cyberintel-backend/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var timeComparer = cmp.Comparer(func(a, b time.Time) bool {
	return a.Equal(b)
})

func timeAt(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSaveAndQuery(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "intelstore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := store.Save(ctx, KindVulnerability, []Record{
		Vulnerability{
			CveId:             "CVE-2024-0001",
			VendorProject:     "Acme",
			Product:           "Router",
			VulnerabilityName: "Auth bypass",
			DateAdded:         timeAt("2024-03-01"),
			DueDate:           timeAt("2024-03-22"),
			Source:            "US-CERT",
			SourceUrl:         "https://www.cisa.gov/known-exploited-vulnerabilities-catalog",
		},
		Vulnerability{
			CveId:             "CVE-2024-0002",
			VendorProject:     "Acme",
			Product:           "Switch",
			VulnerabilityName: "RCE",
			DateAdded:         timeAt("2024-05-01"),
			Source:            "CISA & DHS",
			SourceUrl:         "https://www.cisa.gov/known-exploited-vulnerabilities-catalog",
		},
	})
	require.NoError(t, err)

	{
		vulns, err := store.Vulnerabilities(ctx, VulnerabilityQuery{})
		require.NoError(t, err)
		require.Len(t, vulns, 2)
		// recency ordering, most recent date_added first
		require.Equal(t, "CVE-2024-0002", vulns[0].CveId)
		require.NotZero(t, vulns[0].ScrapeDate)
		require.Greater(t, vulns[1].Id, int64(0))
	}
	{
		vulns, err := store.Vulnerabilities(ctx, VulnerabilityQuery{CveId: "CVE-2024-0001"})
		require.NoError(t, err)
		require.Len(t, vulns, 1)
		require.Equal(t, "Auth bypass", vulns[0].VulnerabilityName)
	}
	{
		vulns, err := store.Vulnerabilities(ctx, VulnerabilityQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, vulns, 1)
		require.Equal(t, "CVE-2024-0001", vulns[0].CveId)
	}

	err = store.Save(ctx, KindAlert, []Record{
		Alert{
			AlertId: "AA24-109A",
			Title:   "Active exploitation of CVE-2024-0001",
			Url:     "https://www.cisa.gov/uscert/ncas/alerts/aa24-109a",
			Source:  "US-CERT",
		},
		Alert{
			Title:  "Quarterly bulletin",
			Url:    "https://www.cisa.gov/uscert/ncas/bulletins/b-1",
			Source: "CISA & DHS",
			PublishedDate: timeAt("2024-04-20"),
		},
	})
	require.NoError(t, err)

	{
		alerts, err := store.Alerts(ctx, AlertQuery{Source: "US-CERT"})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		require.Equal(t, "AA24-109A", alerts[0].AlertId)
		require.Nil(t, alerts[0].PublishedDate)
	}

	err = store.Save(ctx, KindThreatActor, []Record{
		ThreatActor{
			Name:         "Sandworm Team",
			Aliases:      []string{"ELECTRUM", "Telebots"},
			Description:  "destructive operations against ICS",
			Country:      "Russia",
			Capabilities: []string{"G0034", "T1485"},
			Source:       "MITRE ATT&CK",
			SourceUrl:    "https://attack.mitre.org/groups/G0034",
		},
	})
	require.NoError(t, err)

	{
		actors, err := store.ThreatActors(ctx, ThreatActorQuery{Country: "Russia"})
		require.NoError(t, err)
		require.Len(t, actors, 1)
		// list blobs rehydrate with insertion order preserved
		require.Equal(t, []string{"ELECTRUM", "Telebots"}, actors[0].Aliases)
		require.Equal(t, []string{"G0034", "T1485"}, actors[0].Capabilities)
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, counts[KindVulnerability])
	require.EqualValues(t, 2, counts[KindAlert])
	require.EqualValues(t, 1, counts[KindThreatActor])
	require.EqualValues(t, 0, counts[KindIncident])
}

func TestAlertPaging(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "intelstore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	rndm := rand.New(rand.NewSource(41))
	var batch []Record
	for i := 0; i < 30; i++ {
		batch = append(batch, Alert{
			Title:  testutil.RandomString(rndm, 12),
			Url:    "https://example.com/" + testutil.RandomString(rndm, 8),
			Source: "US-CERT",
		})
	}
	require.NoError(t, store.Save(ctx, KindAlert, batch))

	seen := map[int64]bool{}
	for offset := 0; offset < 30; offset += 10 {
		page, err := store.Alerts(ctx, AlertQuery{Limit: 10, Offset: offset})
		require.NoError(t, err)
		require.Len(t, page, 10)
		for _, a := range page {
			require.False(t, seen[a.Id], "page overlap at id %d", a.Id)
			seen[a.Id] = true
		}
	}
	require.Len(t, seen, 30)

	past, err := store.Alerts(ctx, AlertQuery{Limit: 10, Offset: 30})
	require.NoError(t, err)
	require.Empty(t, past)
}

func TestSaveRollsBackWholeBatch(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "intelstore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := store.Save(ctx, KindThreatActor, []Record{
		ThreatActor{Name: "APT1", Source: "MITRE ATT&CK"},
	})
	require.NoError(t, err)

	before, err := store.Counts(ctx)
	require.NoError(t, err)

	// last item violates the non-empty name constraint
	err = store.Save(ctx, KindThreatActor, []Record{
		ThreatActor{Name: "APT28", Source: "MITRE ATT&CK"},
		ThreatActor{Name: "APT29", Source: "MITRE ATT&CK"},
		ThreatActor{Name: "", Source: "MITRE ATT&CK"},
	})
	require.Error(t, err)

	after, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, before[KindThreatActor], after[KindThreatActor])
}

func TestSaveRejectsMismatchedKind(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "intelstore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx := context.Background()
	err := store.Save(ctx, KindVulnerability, []Record{
		Alert{Title: "not a vulnerability"},
	})
	require.Error(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, counts[KindVulnerability])
	require.EqualValues(t, 0, counts[KindAlert])
}

func TestExportRoundTrip(t *testing.T) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "intelstore",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := NewStore(res.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err := store.Save(ctx, KindVulnerability, []Record{
		Vulnerability{
			CveId:             "CVE-2024-0001",
			VendorProject:     "Acme",
			Product:           "Router",
			VulnerabilityName: "Auth bypass",
			DateAdded:         timeAt("2024-03-01"),
			Source:            "US-CERT",
		},
	})
	require.NoError(t, err)
	err = store.Save(ctx, KindIncident, []Record{
		Incident{
			Title:           "Pipeline ransomware",
			Description:     "operations halted for two days",
			IncidentDate:    timeAt("2024-02-10"),
			TargetSectors:   []string{"energy"},
			TargetCountries: []string{"US"},
			AttackVector:    "phishing",
			Source:          "FBI Cyber Division",
		},
	})
	require.NoError(t, err)

	dir := t.TempDir()
	paths, err := store.ExportAll(ctx, dir)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	var exportedVulns []Vulnerability
	blob, err := os.ReadFile(paths[KindVulnerability])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(blob, &exportedVulns))

	queried, err := store.Vulnerabilities(ctx, VulnerabilityQuery{})
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(queried, exportedVulns, timeComparer))

	var exportedIncidents []Incident
	blob, err = os.ReadFile(paths[KindIncident])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(blob, &exportedIncidents))

	queriedIncidents, err := store.Incidents(ctx, IncidentQuery{})
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(queriedIncidents, exportedIncidents, timeComparer))

	// a kind with no rows still exports a parseable empty array
	var exportedActors []ThreatActor
	blob, err = os.ReadFile(paths[KindThreatActor])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(blob, &exportedActors))
	require.Empty(t, exportedActors)
}
