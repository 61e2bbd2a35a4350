package intel

import (
	"regexp"

	"cyberintel-backend/lib/intelstore"
)

// advisory codes like AA24-109A or TA18-074A embedded in titles
var ncasIdPattern = regexp.MustCompile(`\b[A-Z]{2}\d{2}-\d{3}[A-Z]?\b`)

// CERT/CC vulnerability notes, VU#123456
var certVuPattern = regexp.MustCompile(`VU#\d+`)

// IC3/FBI notice numbers, e.g. I-041824-PSA
var fbiNoticePattern = regexp.MustCompile(`\bI-\d{6}(?:-[A-Z]+)?\b`)

var kevSelectors = Selectors{
	Item: "table.usa-table tbody tr",
}

var kevDateFormats = []string{"01/02/2006", "2006-01-02"}

// Registry is the fixed set of named sources. Everything site-specific
// (endpoints, selectors, id patterns, date formats) is data here; the
// handful of pages that aren't list- or table-shaped plug in an
// override extractor instead.
func Registry() []Source {
	return []Source{
		{
			Key:     "us-cert",
			Name:    "US-CERT",
			BaseUrl: "https://www.cisa.gov",
			Endpoints: []Endpoint{
				{
					Path:        "/known-exploited-vulnerabilities-catalog",
					Kind:        intelstore.KindVulnerability,
					Selectors:   kevSelectors,
					DateFormats: kevDateFormats,
				},
				{
					Path: "/uscert/ncas/alerts",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "article.is-promoted, div.c-teaser",
						Title:   "h3 a",
						Date:    "time",
						Summary: "div.c-teaser__summary",
					},
					IdPattern: ncasIdPattern,
				},
			},
		},
		{
			Key:     "mitre",
			Name:    "MITRE ATT&CK",
			BaseUrl: "https://attack.mitre.org",
			Endpoints: []Endpoint{
				{
					Path:    "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json",
					Kind:    intelstore.KindThreatActor,
					Extract: ExtractStixGroups,
				},
			},
		},
		{
			Key:     "cisa-dhs",
			Name:    "CISA & DHS",
			BaseUrl: "https://www.cisa.gov",
			Endpoints: []Endpoint{
				{
					Path:        "/known-exploited-vulnerabilities-catalog",
					Kind:        intelstore.KindVulnerability,
					Selectors:   kevSelectors,
					DateFormats: kevDateFormats,
				},
				{
					Path: "/uscert/ncas/alerts",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.c-teaser",
						Title:   "h3 a",
						Date:    "time",
						Summary: "div.c-teaser__summary",
					},
					IdPattern: ncasIdPattern,
				},
				{
					Path: "/uscert/ncas/bulletins",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.c-teaser",
						Title:   "h3 a",
						Date:    "time",
						Summary: "div.c-teaser__summary",
					},
					IdPattern: regexp.MustCompile(`\bSB\d{2}-\d{3}\b`),
				},
			},
		},
		{
			Key:     "fbi-cyber",
			Name:    "FBI Cyber Division",
			BaseUrl: "https://www.fbi.gov",
			Endpoints: []Endpoint{
				{
					Path: "/investigate/cyber/alerts-and-updates",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.grid-item, article",
						Title:   "h3 a, h2 a",
						Date:    "time, span.date",
						Summary: "p.summary, div.description",
					},
					IdPattern: fbiNoticePattern,
				},
				{
					Path: "/investigate/cyber/news",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.grid-item, article",
						Title:   "h3 a, h2 a",
						Date:    "time, span.date",
						Summary: "p.summary, div.description",
					},
				},
				{
					Path: "https://www.ic3.gov/Media/Default/PDF/IC3Alerts",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:  "li.alert-item, div.media-item",
						Title: "a",
						Date:  "span.date",
					},
					IdPattern: fbiNoticePattern,
				},
			},
		},
		{
			Key:     "nsa-dod",
			Name:    "NSA Cybersecurity Directorate",
			BaseUrl: "https://www.nsa.gov",
			Endpoints: []Endpoint{
				{
					Path: "/cybersecurity-advisories",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.da-item, article",
						Title:   "h3 a, a.title-link",
						Date:    "time, span.da-date",
						Summary: "div.da-summary, p",
					},
				},
				{
					Path: "https://www.cybercom.mil/Media/News",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.da-item, article",
						Title:   "h3 a, a.title-link",
						Date:    "time, span.da-date",
						Summary: "div.da-summary, p",
					},
				},
				{
					Path: "https://www.dc3.mil/news",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.da-item, article",
						Title:   "h3 a, a.title-link",
						Date:    "time, span.da-date",
						Summary: "div.da-summary, p",
					},
				},
			},
		},
		{
			Key:     "nist-standards",
			Name:    "NIST Cybersecurity Framework",
			BaseUrl: "https://www.nist.gov",
			Endpoints: []Endpoint{
				{
					Path: "/cyberframework",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.nist-teaser, article",
						Title:   "h3 a, h2 a",
						Date:    "time",
						Summary: "div.nist-teaser__summary, p",
					},
				},
				{
					Path: "https://nvd.nist.gov/general",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.announcement, li.news-item",
						Title:   "a",
						Date:    "span.date, time",
						Summary: "p",
					},
				},
				{
					Path: "/itl/publications/nist-special-publications",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.nist-teaser, article",
						Title:   "h3 a, h2 a",
						Date:    "time",
						Summary: "div.nist-teaser__summary, p",
					},
					IdPattern: regexp.MustCompile(`\bSP 800-\d+[A-Za-z]?\b`),
				},
			},
		},
		{
			Key:     "research-academic",
			Name:    "Academic & Research",
			BaseUrl: "https://www.sei.cmu.edu",
			Endpoints: []Endpoint{
				{
					Path: "/insights/publications",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.publication, article",
						Title:   "h3 a, h2 a",
						Date:    "time, span.date",
						Summary: "p.abstract, p",
					},
				},
				{
					Path: "https://www.cerias.purdue.edu/tech-reports",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:  "li.report, tr.report-row",
						Title: "a",
						Date:  "span.year",
					},
				},
				{
					Path: "https://www.darpa.mil/news-events/research-projects/I2O",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.listing__item, article",
						Title:   "h3 a, h2 a",
						Date:    "time",
						Summary: "p",
					},
				},
			},
		},
		{
			Key:     "industry-orgs",
			Name:    "Industry Organizations",
			BaseUrl: "https://isc.sans.edu",
			Endpoints: []Endpoint{
				{
					Path: "/diary",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.diary, li.diary-item",
						Title:   "h3 a, a.diary-link",
						Date:    "span.diaryDate, time",
						Summary: "div.diarybody, p",
					},
				},
				{
					Path: "https://www.cisecurity.org/advisories",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.c-card, article",
						Title:   "h3 a, h2 a",
						Date:    "time, span.c-card__date",
						Summary: "div.c-card__summary, p",
					},
					IdPattern: regexp.MustCompile(`\b\d{4}-\d{3}\b`),
				},
				{
					Path: "https://www.first.org/news",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.news-item, article",
						Title:   "h3 a, h2 a",
						Date:    "time, span.date",
						Summary: "p",
					},
				},
				{
					Path: "https://www.kb.cert.org/vuls",
					Kind: intelstore.KindAlert,
					Selectors: Selectors{
						Item:    "div.vulnerability-note, li.vul-item",
						Title:   "a",
						Date:    "span.date, time",
						Summary: "p",
					},
					IdPattern: certVuPattern,
				},
			},
		},
	}
}
