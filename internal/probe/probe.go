// Package probe polls an HTTP service until it answers.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"watchtap/internal/retrywait"
)

const (
	// DefaultTimeout bounds a single probe request.
	DefaultTimeout = 10 * time.Second

	// apiPath is the endpoint probed in API mode.
	apiPath = "/api/v1/watch"

	// maxDrainSize caps how much of a probe response body is read before
	// the connection is released.
	maxDrainSize = 4 << 10
)

// Target is one service endpoint to poll plus its schedule.
type Target struct {
	URL      string
	Schedule retrywait.Policy
}

// Report describes a successful wait: which attempt answered and how much
// of the schedule budget it consumed.
type Report struct {
	Attempt int
	Elapsed time.Duration
	Status  int
}

// Prober polls an HTTP endpoint until it reports ready. A plain prober
// accepts any 2xx answer; in API mode it probes the watch API endpoint and
// also accepts 401, which means the service is up with auth enabled.
type Prober struct {
	httpClient *http.Client
	timeout    time.Duration
	apiMode    bool
	apiKey     string
	runOpts    []retrywait.Option
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) { p.httpClient = client }
}

// WithTimeout bounds each individual probe request.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// WithAPIMode probes the watch API endpoint instead of the bare URL and
// treats 401 as ready. apiKey is sent as x-api-key when non-empty.
func WithAPIMode(apiKey string) Option {
	return func(p *Prober) {
		p.apiMode = true
		p.apiKey = apiKey
	}
}

// OnAttempt registers a per-probe callback, including the final probe.
func OnAttempt(fn func(attempt int, err error)) Option {
	return func(p *Prober) {
		p.runOpts = append(p.runOpts, retrywait.OnAttempt(fn))
	}
}

// WithTimer replaces the pause timer between probes (testing).
func WithTimer(t backoff.Timer) Option {
	return func(p *Prober) {
		p.runOpts = append(p.runOpts, retrywait.WithTimer(t))
	}
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls target.URL on the target's schedule until the service answers
// ready. Transport failures and unexpected statuses both consume an attempt.
// Exhaustion wraps *retrywait.ExhaustedError carrying the full budget.
func (p *Prober) Wait(ctx context.Context, target Target) (Report, error) {
	probeURL, err := p.probeURL(target.URL)
	if err != nil {
		return Report{}, err
	}

	log := slog.With("component", "probe")
	log.Debug("polling service", "url", probeURL,
		"attempts", target.Schedule.Attempts, "interval", target.Schedule.Interval)

	var status int
	op := func(ctx context.Context) error {
		st, err := p.check(ctx, probeURL)
		if err != nil {
			log.Debug("probe failed", "url", probeURL, "err", err)
			return err
		}
		status = st
		return nil
	}

	res, err := retrywait.Run(ctx, target.Schedule, op, p.runOpts...)
	if err != nil {
		return Report{}, fmt.Errorf("service at %s not ready: %w", target.URL, err)
	}
	return Report{Attempt: res.Attempt, Elapsed: res.Elapsed, Status: status}, nil
}

func (p *Prober) probeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse service URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("service URL %q must use http or https", raw)
	}
	if p.apiMode {
		u = u.JoinPath(apiPath)
	}
	return u.String(), nil
}

func (p *Prober) check(ctx context.Context, probeURL string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return 0, retrywait.Permanent(fmt.Errorf("create probe request: %w", err))
	}
	if p.apiMode && p.apiKey != "" {
		req.Header.Set("x-api-key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	if p.apiMode && resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}
	return 0, fmt.Errorf("status %s", resp.Status)
}
