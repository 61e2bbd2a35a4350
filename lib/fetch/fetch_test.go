package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cyberintel-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestRetryUntilSuccess(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:fetch")
	defer cleanup()

	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(Options{
		MaxRetries:  3,
		BackoffBase: time.Millisecond * 10,
	})
	require.NoError(t, err)

	start := time.Now()
	res, err := client.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", res.String())
	require.EqualValues(t, 3, attempts.Load())
	// two backoff delays, each at least base*2^(n-1)+0.1s
	require.GreaterOrEqual(t, time.Since(start), time.Millisecond*10+time.Millisecond*20+time.Millisecond*200)
}

func TestRetryExhaustion(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:fetch")
	defer cleanup()

	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Options{
		MaxRetries:  2,
		BackoffBase: time.Millisecond * 10,
	})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.EqualValues(t, 2, attempts.Load())
}

func TestBackoffBounds(t *testing.T) {
	base := time.Millisecond * 500
	for attempt := 1; attempt <= 4; attempt++ {
		for i := 0; i < 100; i++ {
			exp := base * (1 << (attempt - 1))
			delay := Backoff(base, attempt)
			require.GreaterOrEqual(t, delay, exp+time.Millisecond*100)
			require.Less(t, delay, exp+time.Millisecond*500)
		}
	}
}
