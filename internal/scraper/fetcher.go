package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/bizcrawl/internal/challenge"
	"github.com/FranksOps/bizcrawl/pkg/httpclient"
	"github.com/FranksOps/bizcrawl/pkg/useragent"
	"github.com/google/uuid"
)

// Request is one fetch handed to the engine. Meta is carried untouched to
// the matching Response so callers can correlate without shared state.
type Request struct {
	Method string
	URL    string
	// Params are encoded into the query string for GET and into a form body
	// otherwise.
	Params url.Values
	// Label names the request in logs and metrics.
	Label string
	Meta  any
}

// Response is the outcome of a Request. Err is set when no usable response
// arrived: transport failure, robots.txt refusal or a challenge page.
type Response struct {
	ID         string
	Request    *Request
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
	Err        error
}

// FetchConfig configures the Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// MaxRetries is the number of extra attempts after a network error,
	// 429 or 5xx.
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	UAPool      *useragent.Pool
	Detectors   []challenge.Detector
	Transport   http.RoundTripper
	Logger      *slog.Logger
}

// Fetcher performs single request/response exchanges.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher initializes a new Fetcher with the given configuration.
// The client is shared across requests so connections and cookies are reused.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Detectors == nil {
		cfg.Detectors = challenge.DefaultDetectors()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: logger,
	}, nil
}

// UserAgent is the identity used for robots.txt matching.
func (f *Fetcher) UserAgent() string {
	return f.config.UAPool.Primary()
}

// Do executes req, retrying transient failures, and always returns a
// Response describing the final attempt.
func (f *Fetcher) Do(ctx context.Context, req *Request) *Response {
	start := time.Now()
	resp := &Response{
		ID:      uuid.New().String(),
		Request: req,
	}

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := f.backoff(ctx, attempt-1); err != nil {
				resp.Err = err
				break
			}
		}
		resp.Attempts = attempt + 1

		retry := f.attempt(ctx, req, resp)
		if !retry || attempt == f.config.MaxRetries {
			break
		}
		f.logger.Warn("retrying fetch",
			"url", req.URL,
			"label", req.Label,
			"attempt", attempt+1,
			"status", resp.StatusCode,
			"err", resp.Err,
		)
	}

	resp.Duration = time.Since(start)

	if resp.Err == nil {
		page := challenge.Page{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
		if src, detected := challenge.Detect(page, f.config.Detectors); detected {
			resp.Err = &challenge.Error{Source: src, StatusCode: resp.StatusCode}
		}
	}

	return resp
}

// attempt performs one exchange, filling resp, and reports whether the
// outcome is transient.
func (f *Fetcher) attempt(ctx context.Context, req *Request, resp *Response) bool {
	resp.StatusCode, resp.Headers, resp.Body, resp.Err = 0, nil, nil, nil

	httpReq, err := f.build(ctx, req)
	if err != nil {
		resp.Err = fmt.Errorf("failed to create request: %w", err)
		return false
	}

	r, err := f.client.Do(ctx, httpReq)
	if err != nil {
		resp.Err = fmt.Errorf("request failed: %w", err)
		return ctx.Err() == nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	resp.StatusCode = r.StatusCode
	resp.Headers = r.Header
	resp.Body = body
	if err != nil {
		resp.Err = fmt.Errorf("failed to read body: %w", err)
		return ctx.Err() == nil
	}

	if se, ok := httpclient.CheckStatus(r.StatusCode, req.URL).(*httpclient.StatusError); ok {
		return se.Retryable()
	}
	return false
}

func (f *Fetcher) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Params) > 0 {
		if method == http.MethodGet || method == http.MethodHead {
			q := u.Query()
			for k, vs := range req.Params {
				q[k] = append([]string(nil), vs...)
			}
			u.RawQuery = q.Encode()
		} else {
			body = strings.NewReader(req.Params.Encode())
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	httpReq.Header.Set("User-Agent", f.config.UAPool.Next())
	httpReq.Header.Set("Accept", "application/json,text/html;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")

	return httpReq, nil
}

func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	d := time.Duration(float64(f.config.BackoffBase) * math.Pow(2, float64(attempt)))
	if d > f.config.BackoffMax {
		d = f.config.BackoffMax
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
