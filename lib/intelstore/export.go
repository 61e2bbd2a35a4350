package intelstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

var exportFiles = map[Kind]string{
	KindVulnerability: "vulnerabilities.json",
	KindAlert:         "alerts.json",
	KindThreatActor:   "threat_actors.json",
	KindIncident:      "incidents.json",
}

// ExportAll serializes the full contents of every kind to one JSON file
// per kind under outputDir. Files are written to a temp file first and
// renamed into place so a failure never leaves a partial export behind.
func (s Store) ExportAll(ctx context.Context, outputDir string) (map[Kind]string, error) {
	err := os.MkdirAll(outputDir, 0o755)
	if err != nil {
		return nil, err
	}

	result := map[Kind]string{}

	vulns, err := s.Vulnerabilities(ctx, VulnerabilityQuery{})
	if err != nil {
		return nil, err
	}
	result[KindVulnerability], err = writeJson(outputDir, exportFiles[KindVulnerability], vulns)
	if err != nil {
		return nil, err
	}

	alerts, err := s.Alerts(ctx, AlertQuery{})
	if err != nil {
		return nil, err
	}
	result[KindAlert], err = writeJson(outputDir, exportFiles[KindAlert], alerts)
	if err != nil {
		return nil, err
	}

	actors, err := s.ThreatActors(ctx, ThreatActorQuery{})
	if err != nil {
		return nil, err
	}
	result[KindThreatActor], err = writeJson(outputDir, exportFiles[KindThreatActor], actors)
	if err != nil {
		return nil, err
	}

	incidents, err := s.Incidents(ctx, IncidentQuery{})
	if err != nil {
		return nil, err
	}
	result[KindIncident], err = writeJson(outputDir, exportFiles[KindIncident], incidents)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func writeJson(dir, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", err
	}
	_, err = tmp.Write(data)
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

	path := filepath.Join(dir, name)
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
