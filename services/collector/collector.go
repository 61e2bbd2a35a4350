package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cyberintel-backend/lib/fetch"
	"cyberintel-backend/lib/intelstore"
	"cyberintel-backend/lib/scrapers/intel"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/collector")

// Service runs scrape cycles: fetch every configured source, extract
// records, and persist them per kind.
type Service struct {
	store   intelstore.Store
	client  *fetch.Client
	sources []intel.Source
}

func NewService(store intelstore.Store, client *fetch.Client, sources []intel.Source) Service {
	return Service{
		store:   store,
		client:  client,
		sources: sources,
	}
}

// Outcome is what one source produced in one cycle.
type Outcome struct {
	// rows persisted per kind
	Saved map[intelstore.Kind]int
	// fetch, extraction, or persistence failures per kind
	Failures map[intelstore.Kind]error
}

// Succeeded reports whether the kind came through the cycle without a
// fetch, extraction, or persistence failure.
func (o Outcome) Succeeded(kind intelstore.Kind) bool {
	_, failed := o.Failures[kind]
	return !failed
}

// Run executes one scrape cycle over the named sources, or over every
// registered source when names is empty. Unknown names are dropped with
// a diagnostic; if nothing remains the cycle aborts before any network
// or database work happens.
func (s Service) Run(ctx context.Context, names []string) (map[string]Outcome, error) {
	ctx, span := tracer.Start(ctx, "collector:run")
	defer span.End()

	selected, err := s.resolve(ctx, names)
	if err != nil {
		return nil, err
	}

	outcomes := map[string]Outcome{}
	for _, src := range selected {
		outcomes[src.Name] = s.runSource(ctx, src)
	}
	return outcomes, nil
}

func (s Service) resolve(ctx context.Context, names []string) ([]intel.Source, error) {
	if len(names) == 0 {
		return s.sources, nil
	}

	byName := map[string]intel.Source{}
	for _, src := range s.sources {
		byName[strings.ToLower(src.Name)] = src
		if src.Key != "" {
			byName[strings.ToLower(src.Key)] = src
		}
	}

	var selected []intel.Source
	taken := map[string]bool{}
	for _, name := range names {
		src, ok := byName[strings.ToLower(name)]
		if !ok {
			slog.WarnContext(ctx, "unknown source, skipping",
				"name", name,
				"suggestion", s.closestName(name),
			)
			continue
		}
		if taken[src.Name] {
			continue
		}
		taken[src.Name] = true
		selected = append(selected, src)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("none of the requested sources exist: %s", strings.Join(names, ", "))
	}
	return selected, nil
}

// closestName finds the registered key or name nearest to the given
// one, for "did you mean" diagnostics. Returns "" when nothing is
// plausibly close.
func (s Service) closestName(name string) string {
	best := ""
	bestDistance := 6
	for _, src := range s.sources {
		for _, candidate := range []string{src.Key, src.Name} {
			if candidate == "" {
				continue
			}
			d := matchr.Levenshtein(strings.ToLower(name), strings.ToLower(candidate))
			if d < bestDistance {
				best = candidate
				bestDistance = d
			}
		}
	}
	return best
}

func (s Service) runSource(ctx context.Context, src intel.Source) Outcome {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("collect:%s", src.Name))
	defer span.End()

	result := intel.Scrape(ctx, s.client, src)

	outcome := Outcome{
		Saved:    map[intelstore.Kind]int{},
		Failures: result.Failures,
	}
	for kind, records := range result.Records {
		outcome.Saved[kind] = 0
		if len(records) == 0 {
			if _, failed := result.Failures[kind]; !failed {
				slog.WarnContext(ctx, "source produced no records",
					"source", src.Name, "kind", kind)
			}
			continue
		}

		err := s.store.Save(ctx, kind, records)
		if err != nil {
			slog.ErrorContext(ctx, "persisting records failed",
				"source", src.Name, "kind", kind, "err", err)
			outcome.Failures[kind] = err
			continue
		}
		outcome.Saved[kind] = len(records)
	}

	return outcome
}
