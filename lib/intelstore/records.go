package intelstore

import "time"

// Kind selects the table a record is stored under.
type Kind string

const (
	KindVulnerability Kind = "vulnerability"
	KindAlert         Kind = "alert"
	KindThreatActor   Kind = "threat_actor"
	KindIncident      Kind = "incident"
)

func Kinds() []Kind {
	return []Kind{KindVulnerability, KindAlert, KindThreatActor, KindIncident}
}

// Record is one extracted unit of intel. Implementations are plain
// data, immutable once saved.
type Record interface {
	Kind() Kind
}

type Vulnerability struct {
	Id                int64      `json:"id"`
	CveId             string     `json:"cve_id"`
	VendorProject     string     `json:"vendor_project"`
	Product           string     `json:"product"`
	VulnerabilityName string     `json:"vulnerability_name"`
	DateAdded         *time.Time `json:"date_added"`
	DueDate           *time.Time `json:"due_date"`
	Source            string     `json:"source"`
	SourceUrl         string     `json:"source_url"`
	ScrapeDate        time.Time  `json:"scrape_date"`
	Details           string     `json:"details"`
}

func (Vulnerability) Kind() Kind { return KindVulnerability }

type Alert struct {
	Id            int64      `json:"id"`
	AlertId       string     `json:"alert_id"`
	Title         string     `json:"title"`
	Url           string     `json:"url"`
	PublishedDate *time.Time `json:"published_date"`
	Summary       string     `json:"summary"`
	Content       string     `json:"content"`
	Source        string     `json:"source"`
	ScrapeDate    time.Time  `json:"scrape_date"`
}

func (Alert) Kind() Kind { return KindAlert }

type ThreatActor struct {
	Id           int64      `json:"id"`
	Name         string     `json:"name"`
	Aliases      []string   `json:"aliases"`
	Description  string     `json:"description"`
	Country      string     `json:"country"`
	Motivation   string     `json:"motivation"`
	FirstSeen    *time.Time `json:"first_seen"`
	LastSeen     *time.Time `json:"last_seen"`
	Capabilities []string   `json:"capabilities"`
	Source       string     `json:"source"`
	SourceUrl    string     `json:"source_url"`
	ScrapeDate   time.Time  `json:"scrape_date"`
}

func (ThreatActor) Kind() Kind { return KindThreatActor }

type Incident struct {
	Id              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	IncidentDate    *time.Time `json:"incident_date"`
	TargetSectors   []string   `json:"target_sectors"`
	TargetCountries []string   `json:"target_countries"`
	AttackVector    string     `json:"attack_vector"`
	Impact          string     `json:"impact"`
	Source          string     `json:"source"`
	SourceUrl       string     `json:"source_url"`
	ScrapeDate      time.Time  `json:"scrape_date"`
}

func (Incident) Kind() Kind { return KindIncident }
