package dateutil

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// the formats government advisory pages tend to use, tried in order
var DefaultFormats = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 January 2006",
}

// Parse tries each format in order and returns the first success. All
// failures leave the date nil with a warning diagnostic, a missing date
// is degraded data rather than an error.
func Parse(ctx context.Context, value string, formats []string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	for _, f := range formats {
		t, err := time.Parse(f, value)
		if err == nil {
			return &t
		}
	}
	slog.WarnContext(ctx, "could not parse date", "value", value)
	return nil
}
