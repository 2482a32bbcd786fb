// Package icalfetch downloads external calendars over HTTP.
package icalfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"stayquote/internal/app/policies"
	"stayquote/internal/domain/ical"
)

const (
	DefaultTimeout = 5 * time.Second
	// MaxBodyBytes caps a single calendar download.
	MaxBodyBytes = 8 << 20
)

var errBodyTooLarge = errors.New("icalfetch: body exceeds size limit")

// Fetcher issues GET requests guarded by one circuit breaker per host.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		maxBytes: MaxBodyBytes,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ical.ErrFetch, rawURL)
	}
	switch parsed.Scheme {
	case "webcal":
		parsed.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ical.ErrFetch, parsed.Scheme)
	}

	out, err := f.breaker(parsed.Host).Execute(func() (interface{}, error) {
		return f.get(ctx, parsed.String())
	})
	if err != nil {
		if errors.Is(err, ical.ErrFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ical.ErrFetch, err)
	}
	return out.([]byte), nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ical.ErrFetch, err)
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ical.ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ical.ErrFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ical.ErrFetch, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %v", ical.ErrFetch, errBodyTooLarge)
	}
	return body, nil
}

func (f *Fetcher) breaker(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if f.logger != nil {
				f.logger.Warn("ical fetch breaker state changed", "host", name, "from", from.String(), "to", to.String())
			}
		},
	})
	f.breakers[host] = cb
	return cb
}

var _ policies.ICalFetcher = (*Fetcher)(nil)
