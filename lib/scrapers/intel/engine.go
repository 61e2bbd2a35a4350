package intel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"cyberintel-backend/lib/dateutil"
	"cyberintel-backend/lib/fetch"
	"cyberintel-backend/lib/htmlutil"
	"cyberintel-backend/lib/intelstore"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/intel")

// Selectors are the fixed field-selection rules for a list-shaped page.
type Selectors struct {
	// container matching one item (list entry or table row)
	Item string
	// anchor within the item, the item is skipped when it is missing
	Title string
	// element holding the publication date, optional
	Date string
	// element holding the summary text, optional
	Summary string
}

// ExtractFunc turns a fetched response into records. Overrides are for
// the few endpoints whose markup or format doesn't fit the generic
// shapes.
type ExtractFunc func(ctx context.Context, src Source, ep Endpoint, res *resty.Response) ([]intelstore.Record, error)

type Endpoint struct {
	// absolute url, or a path resolved against the source's BaseUrl
	Path        string
	Kind        intelstore.Kind
	Selectors   Selectors
	IdPattern   *regexp.Regexp
	DateFormats []string
	Extract     ExtractFunc
}

// Source is one external publisher: a name plus the endpoints to fetch.
// All the site-specific knowledge lives in this configuration, the
// engine itself is shared.
type Source struct {
	// short slug used to select the source on the command line
	Key string
	// display name stamped onto records as their attribution
	Name      string
	BaseUrl   string
	Endpoints []Endpoint
}

type Result struct {
	// extracted records per kind; a kind the source declares but whose
	// endpoints all came up empty is present with a zero-length slice
	Records map[intelstore.Kind][]intelstore.Record
	// fetch/extract failures per kind
	Failures map[intelstore.Kind]error
}

// Scrape fetches every endpoint of the source and extracts records.
// Endpoint failures are isolated: a dead page degrades that kind, it
// never aborts the other endpoints.
func Scrape(ctx context.Context, client *fetch.Client, src Source) Result {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("scrape:%s", src.Name))
	defer span.End()

	result := Result{
		Records:  map[intelstore.Kind][]intelstore.Record{},
		Failures: map[intelstore.Kind]error{},
	}

	for _, ep := range src.Endpoints {
		if _, ok := result.Records[ep.Kind]; !ok {
			result.Records[ep.Kind] = []intelstore.Record{}
		}

		link := endpointUrl(src, ep)
		res, err := client.Get(ctx, link, nil)
		if err != nil {
			slog.WarnContext(ctx, "fetch failed, no data this cycle", "source", src.Name, "url", link, "err", err)
			result.Failures[ep.Kind] = err
			continue
		}

		extract := ep.Extract
		if extract == nil {
			extract = extractGeneric
		}
		records, err := extract(ctx, src, ep, res)
		if err != nil {
			slog.WarnContext(ctx, "extraction failed", "source", src.Name, "url", link, "err", err)
			result.Failures[ep.Kind] = err
			continue
		}

		slog.InfoContext(ctx, "extracted records", "source", src.Name, "url", link, "kind", ep.Kind, "count", len(records))
		result.Records[ep.Kind] = append(result.Records[ep.Kind], records...)
	}

	return result
}

func endpointUrl(src Source, ep Endpoint) string {
	link, err := url.Parse(ep.Path)
	if err == nil && link.IsAbs() {
		return ep.Path
	}
	base, err := url.Parse(src.BaseUrl)
	if err != nil {
		return ep.Path
	}
	return htmlutil.Absolute(base, ep.Path)
}

func extractGeneric(ctx context.Context, src Source, ep Endpoint, res *resty.Response) ([]intelstore.Record, error) {
	switch ep.Kind {
	case intelstore.KindAlert:
		return extractAlertList(ctx, src, ep, res)
	case intelstore.KindVulnerability:
		return extractVulnerabilityTable(ctx, src, ep, res)
	default:
		return nil, fmt.Errorf("no generic extractor for kind %q", ep.Kind)
	}
}

// extractAlertList handles the common "list of linked headlines" page
// shape shared by most advisory and news indexes.
func extractAlertList(ctx context.Context, src Source, ep Endpoint, res *resty.Response) ([]intelstore.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(src.BaseUrl)
	if err != nil {
		return nil, err
	}

	var records []intelstore.Record
	doc.Find(ep.Selectors.Item).Each(func(_ int, item *goquery.Selection) {
		titleSel := item.Find(ep.Selectors.Title).First()
		title := htmlutil.CleanText(titleSel.Text())
		if title == "" {
			// no title anchor means this item is unusable, skip it
			slog.DebugContext(ctx, "skipping item with no title", "source", src.Name)
			return
		}

		href := titleSel.AttrOr("href", "")
		if href == "" {
			href = item.Find("a").First().AttrOr("href", "")
		}

		alertId := ""
		if ep.IdPattern != nil {
			alertId = ep.IdPattern.FindString(title)
		}

		var publishedDate *time.Time
		if ep.Selectors.Date != "" {
			dateText := htmlutil.CleanText(item.Find(ep.Selectors.Date).First().Text())
			publishedDate = dateutil.Parse(ctx, dateText, ep.DateFormats)
		}

		summary := ""
		if ep.Selectors.Summary != "" {
			summary = htmlutil.CleanText(item.Find(ep.Selectors.Summary).First().Text())
		}

		records = append(records, intelstore.Alert{
			AlertId:       alertId,
			Title:         title,
			Url:           htmlutil.Absolute(base, href),
			PublishedDate: publishedDate,
			Summary:       summary,
			Source:        src.Name,
		})
	})

	return records, nil
}

// extractVulnerabilityTable handles KEV-catalog style tables: one row
// per vulnerability with a fixed column order of cve / vendor /
// product / name / date added / due date.
func extractVulnerabilityTable(ctx context.Context, src Source, ep Endpoint, res *resty.Response) ([]intelstore.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}

	sourceUrl := endpointUrl(src, ep)

	var records []intelstore.Record
	doc.Find(ep.Selectors.Item).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		cell := func(i int) string {
			return htmlutil.CleanText(cells.Eq(i).Text())
		}

		name := cell(3)
		if name == "" {
			slog.DebugContext(ctx, "skipping row with no vulnerability name", "source", src.Name)
			return
		}

		records = append(records, intelstore.Vulnerability{
			CveId:             cell(0),
			VendorProject:     cell(1),
			Product:           cell(2),
			VulnerabilityName: name,
			DateAdded:         dateutil.Parse(ctx, cell(4), ep.DateFormats),
			DueDate:           dateutil.Parse(ctx, cell(5), ep.DateFormats),
			Source:            src.Name,
			SourceUrl:         sourceUrl,
		})
	})

	return records, nil
}
