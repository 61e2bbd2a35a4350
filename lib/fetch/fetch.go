package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http/cookiejar"
	"net/url"
	"time"

	"cyberintel-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	BaseUrl   string
	UserAgent string
	// total attempts, defaults to 3
	MaxRetries int
	// defaults to 500ms
	BackoffBase time.Duration
	// defaults to 30s
	Timeout time.Duration
}

// Client is a GET-only http client with a cookie jar and bounded
// retries. Exhausted retries come back as an error the caller should
// treat as "no data this cycle".
type Client struct {
	http *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Millisecond * 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	client.SetRetryCount(opts.MaxRetries - 1)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || !res.IsSuccess()
	})
	client.SetRetryAfter(func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
		return Backoff(opts.BackoffBase, res.Request.Attempt), nil
	})
	client.AddRetryHook(func(res *resty.Response, err error) {
		slog.Warn(
			"request failed, retrying",
			"url", res.Request.URL,
			"attempt", res.Request.Attempt,
			"err", err,
		)
	})

	telemetry.InstrumentResty(client, "lib/fetch")

	return &Client{http: client}, nil
}

// Backoff returns the delay taken after `attempt` failed attempts:
// base * 2^(attempt-1) plus a uniform jitter in [0.1s, 0.5s).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base * (1 << (attempt - 1))
	jitter := time.Duration((0.1 + rand.Float64()*0.4) * float64(time.Second))
	return delay + jitter
}

func (c *Client) Get(ctx context.Context, link string, query url.Values) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(link)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("GET %s: unexpected status %s", link, res.Status())
	}
	return res, nil
}
