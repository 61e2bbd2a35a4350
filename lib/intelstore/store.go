package intelstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cyberintel-backend/lib/intelstore/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// path of the local sqlite file
	File string `json:"file"`
	// remote libsql url, takes precedence over File when set
	Url string `json:"url"`
}

// Open opens the backing database and applies the schema.
func Open(c Config) (*sql.DB, error) {
	var database *sql.DB
	var err error
	if c.Url != "" {
		database, err = sql.Open("libsql", c.Url)
	} else {
		if c.File == "" {
			c.File = ":memory:"
		}
		database, err = sql.Open("sqlite", c.File)
	}
	if err != nil {
		return nil, err
	}
	_, err = database.Exec(db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return nil, err
	}
	return database, nil
}

// Store persists extracted records. Rows are append-only, identity is
// assigned by the database and never reused.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Save appends a batch of records of one kind inside a single
// transaction. A failure anywhere rolls back the whole batch. The
// scrape date is stamped here when the record doesn't carry one.
func (s Store) Save(ctx context.Context, kind Kind, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, r := range records {
		if r.Kind() != kind {
			return fmt.Errorf("record kind %q does not belong in a %q batch", r.Kind(), kind)
		}
		switch rec := r.(type) {
		case Vulnerability:
			err = insertVulnerability(ctx, tx, rec, now)
		case Alert:
			err = insertAlert(ctx, tx, rec, now)
		case ThreatActor:
			err = insertThreatActor(ctx, tx, rec, now)
		case Incident:
			err = insertIncident(ctx, tx, rec, now)
		default:
			err = fmt.Errorf("unknown record type %T", r)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scrapeDate(explicit time.Time, fallback time.Time) int64 {
	if explicit.IsZero() {
		return fallback.Unix()
	}
	return explicit.Unix()
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func readOptTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func marshalList(ctx context.Context, list []string) string {
	if list == nil {
		list = []string{}
	}
	blob, err := json.Marshal(list)
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal list field", "err", err)
		return "[]"
	}
	return string(blob)
}

func unmarshalList(ctx context.Context, blob string) []string {
	if blob == "" {
		return []string{}
	}
	var list []string
	err := json.Unmarshal([]byte(blob), &list)
	if err != nil {
		slog.WarnContext(ctx, "failed to unmarshal list field", "err", err)
		return []string{}
	}
	return list
}

func insertVulnerability(ctx context.Context, tx *sql.Tx, rec Vulnerability, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO vulnerabilities
  (cve_id, vendor_project, product, vulnerability_name, date_added, due_date, source, source_url, scrape_date, details)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CveId, rec.VendorProject, rec.Product, rec.VulnerabilityName,
		optTime(rec.DateAdded), optTime(rec.DueDate),
		rec.Source, rec.SourceUrl, scrapeDate(rec.ScrapeDate, now), rec.Details,
	)
	return err
}

func insertAlert(ctx context.Context, tx *sql.Tx, rec Alert, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO alerts
  (alert_id, title, url, published_date, summary, content, source, scrape_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AlertId, rec.Title, rec.Url, optTime(rec.PublishedDate),
		rec.Summary, rec.Content, rec.Source, scrapeDate(rec.ScrapeDate, now),
	)
	return err
}

func insertThreatActor(ctx context.Context, tx *sql.Tx, rec ThreatActor, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO threat_actors
  (name, aliases, description, country, motivation, first_seen, last_seen, capabilities, source, source_url, scrape_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, marshalList(ctx, rec.Aliases), rec.Description, rec.Country, rec.Motivation,
		optTime(rec.FirstSeen), optTime(rec.LastSeen), marshalList(ctx, rec.Capabilities),
		rec.Source, rec.SourceUrl, scrapeDate(rec.ScrapeDate, now),
	)
	return err
}

func insertIncident(ctx context.Context, tx *sql.Tx, rec Incident, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO incidents
  (title, description, incident_date, target_sectors, target_countries, attack_vector, impact, source, source_url, scrape_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Description, optTime(rec.IncidentDate),
		marshalList(ctx, rec.TargetSectors), marshalList(ctx, rec.TargetCountries),
		rec.AttackVector, rec.Impact, rec.Source, rec.SourceUrl, scrapeDate(rec.ScrapeDate, now),
	)
	return err
}

type VulnerabilityQuery struct {
	CveId  string
	Source string
	Limit  int
	Offset int
}

func limitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		// sqlite treats a negative limit as unbounded
		limit = -1
	}
	return limit, offset
}

func (s Store) Vulnerabilities(ctx context.Context, q VulnerabilityQuery) ([]Vulnerability, error) {
	where := []string{"1=1"}
	var args []any
	if q.CveId != "" {
		where = append(where, "cve_id = ?")
		args = append(args, q.CveId)
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	limit, offset := limitOffset(q.Limit, q.Offset)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, cve_id, vendor_project, product, vulnerability_name, date_added, due_date, source, source_url, scrape_date, details
FROM vulnerabilities WHERE %s
ORDER BY date_added DESC, id DESC
LIMIT ? OFFSET ?`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Vulnerability{}
	for rows.Next() {
		var rec Vulnerability
		var dateAdded, dueDate sql.NullInt64
		var scraped int64
		err := rows.Scan(
			&rec.Id, &rec.CveId, &rec.VendorProject, &rec.Product, &rec.VulnerabilityName,
			&dateAdded, &dueDate, &rec.Source, &rec.SourceUrl, &scraped, &rec.Details,
		)
		if err != nil {
			return nil, err
		}
		rec.DateAdded = readOptTime(dateAdded)
		rec.DueDate = readOptTime(dueDate)
		rec.ScrapeDate = time.Unix(scraped, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

type AlertQuery struct {
	AlertId string
	Source  string
	Limit   int
	Offset  int
}

func (s Store) Alerts(ctx context.Context, q AlertQuery) ([]Alert, error) {
	where := []string{"1=1"}
	var args []any
	if q.AlertId != "" {
		where = append(where, "alert_id = ?")
		args = append(args, q.AlertId)
	}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	limit, offset := limitOffset(q.Limit, q.Offset)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, alert_id, title, url, published_date, summary, content, source, scrape_date
FROM alerts WHERE %s
ORDER BY published_date DESC, id DESC
LIMIT ? OFFSET ?`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Alert{}
	for rows.Next() {
		var rec Alert
		var published sql.NullInt64
		var scraped int64
		err := rows.Scan(
			&rec.Id, &rec.AlertId, &rec.Title, &rec.Url, &published,
			&rec.Summary, &rec.Content, &rec.Source, &scraped,
		)
		if err != nil {
			return nil, err
		}
		rec.PublishedDate = readOptTime(published)
		rec.ScrapeDate = time.Unix(scraped, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

type ThreatActorQuery struct {
	Name    string
	Country string
	Limit   int
	Offset  int
}

func (s Store) ThreatActors(ctx context.Context, q ThreatActorQuery) ([]ThreatActor, error) {
	where := []string{"1=1"}
	var args []any
	if q.Name != "" {
		where = append(where, "name = ?")
		args = append(args, q.Name)
	}
	if q.Country != "" {
		where = append(where, "country = ?")
		args = append(args, q.Country)
	}
	limit, offset := limitOffset(q.Limit, q.Offset)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, name, aliases, description, country, motivation, first_seen, last_seen, capabilities, source, source_url, scrape_date
FROM threat_actors WHERE %s
ORDER BY name ASC, id DESC
LIMIT ? OFFSET ?`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ThreatActor{}
	for rows.Next() {
		var rec ThreatActor
		var aliases, capabilities string
		var firstSeen, lastSeen sql.NullInt64
		var scraped int64
		err := rows.Scan(
			&rec.Id, &rec.Name, &aliases, &rec.Description, &rec.Country, &rec.Motivation,
			&firstSeen, &lastSeen, &capabilities, &rec.Source, &rec.SourceUrl, &scraped,
		)
		if err != nil {
			return nil, err
		}
		rec.Aliases = unmarshalList(ctx, aliases)
		rec.Capabilities = unmarshalList(ctx, capabilities)
		rec.FirstSeen = readOptTime(firstSeen)
		rec.LastSeen = readOptTime(lastSeen)
		rec.ScrapeDate = time.Unix(scraped, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

type IncidentQuery struct {
	Source string
	Limit  int
	Offset int
}

func (s Store) Incidents(ctx context.Context, q IncidentQuery) ([]Incident, error) {
	where := []string{"1=1"}
	var args []any
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	limit, offset := limitOffset(q.Limit, q.Offset)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, title, description, incident_date, target_sectors, target_countries, attack_vector, impact, source, source_url, scrape_date
FROM incidents WHERE %s
ORDER BY incident_date DESC, id DESC
LIMIT ? OFFSET ?`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Incident{}
	for rows.Next() {
		var rec Incident
		var sectors, countries string
		var incidentDate sql.NullInt64
		var scraped int64
		err := rows.Scan(
			&rec.Id, &rec.Title, &rec.Description, &incidentDate,
			&sectors, &countries, &rec.AttackVector, &rec.Impact,
			&rec.Source, &rec.SourceUrl, &scraped,
		)
		if err != nil {
			return nil, err
		}
		rec.TargetSectors = unmarshalList(ctx, sectors)
		rec.TargetCountries = unmarshalList(ctx, countries)
		rec.IncidentDate = readOptTime(incidentDate)
		rec.ScrapeDate = time.Unix(scraped, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

var kindTables = map[Kind]string{
	KindVulnerability: "vulnerabilities",
	KindAlert:         "alerts",
	KindThreatActor:   "threat_actors",
	KindIncident:      "incidents",
}

func (s Store) Counts(ctx context.Context) (map[Kind]int64, error) {
	out := map[Kind]int64{}
	for _, kind := range Kinds() {
		var count int64
		err := s.db.QueryRowContext(
			ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", kindTables[kind]),
		).Scan(&count)
		if err != nil {
			return nil, err
		}
		out[kind] = count
	}
	return out, nil
}
