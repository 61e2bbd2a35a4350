package collector

import (
	"context"
	"log/slog"
	"time"
)

// RunEvery runs job immediately and then once per interval until the
// context is canceled. The next run is scheduled from the start of the
// previous one, and runs never overlap: a job that overshoots its
// interval just pushes the next run out.
func RunEvery(ctx context.Context, interval, tick time.Duration, job func(context.Context)) {
	next := time.Now()
	for {
		if !time.Now().Before(next) {
			start := time.Now()
			job(ctx)
			next = start.Add(interval)
			slog.InfoContext(ctx, "next run scheduled", "at", next.Format(time.RFC3339))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(tick):
		}
	}
}
