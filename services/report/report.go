package report

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"cyberintel-backend/lib/intelstore"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/report")

//go:embed report.tmpl.html
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.tmpl.html").
		Funcs(template.FuncMap{"date": formatDate}).
		ParseFS(templateFS, "report.tmpl.html"),
)

const (
	recentVulnerabilities = 20
	recentAlerts          = 10
)

type pageData struct {
	GeneratedAt        string
	VulnerabilityCount int64
	AlertCount         int64
	ThreatActorCount   int64
	IncidentCount      int64
	Vulnerabilities    []intelstore.Vulnerability
	Alerts             []intelstore.Alert
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01-02")
}

// Generate renders an HTML summary of the store into outputDir and
// returns the file's path. The filename carries a timestamp so
// successive reports never clobber each other, and the file is renamed
// into place so a failed render leaves nothing behind.
func Generate(ctx context.Context, store intelstore.Store, outputDir string) (string, error) {
	ctx, span := tracer.Start(ctx, "report:generate")
	defer span.End()

	counts, err := store.Counts(ctx)
	if err != nil {
		return "", err
	}
	vulns, err := store.Vulnerabilities(ctx, intelstore.VulnerabilityQuery{Limit: recentVulnerabilities})
	if err != nil {
		return "", err
	}
	alerts, err := store.Alerts(ctx, intelstore.AlertQuery{Limit: recentAlerts})
	if err != nil {
		return "", err
	}

	now := time.Now()
	data := pageData{
		GeneratedAt:        now.Format("2006-01-02 15:04:05"),
		VulnerabilityCount: counts[intelstore.KindVulnerability],
		AlertCount:         counts[intelstore.KindAlert],
		ThreatActorCount:   counts[intelstore.KindThreatActor],
		IncidentCount:      counts[intelstore.KindIncident],
		Vulnerabilities:    vulns,
		Alerts:             alerts,
	}

	err = os.MkdirAll(outputDir, 0o755)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("cyber_intel_report_%s.html", now.Format("20060102_150405"))
	tmp, err := os.CreateTemp(outputDir, name+".tmp-*")
	if err != nil {
		return "", err
	}
	err = reportTemplate.Execute(tmp, data)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	path := filepath.Join(outputDir, name)
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
