package fetch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 90 * time.Second
	defaultRetries = 3
	minBodyLength  = 500
)

var challengeMarkers = []string{
	"cf-browser-verification",
	"cf_clearance",
	"Just a moment...",
	"Enable JavaScript and cookies to continue",
}

// Options tune one Fetch call. Zero values fall back to 90s and 3 attempts.
type Options struct {
	Cookies string
	Timeout time.Duration
	Retries int
}

// Client wraps a Provider with validation and jittered exponential backoff.
type Client struct {
	Provider Provider
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a value in [0,1); nil uses math/rand.
	Jitter func() float64
}

func NewClient(p Provider) *Client {
	return &Client{Provider: p}
}

// Backoff is the wait after failed attempt n (0-based): 2.5^n × 3s plus jitter × 3s.
func Backoff(attempt int, jitter float64) time.Duration {
	base := math.Pow(2.5, float64(attempt)) * 3000
	return time.Duration(math.Round(base+jitter*3000)) * time.Millisecond
}

// Fetch retrieves url through the provider. It fails with ErrFetchBlocked
// once every attempt was rejected.
func (c *Client) Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	if c.Provider == nil {
		return nil, ErrMissingCredentials
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		resp, err := c.Provider.Do(ctx, Request{URL: url, Cookies: opts.Cookies, Timeout: timeout})
		if err == nil {
			err = validate(resp.HTML)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn().
			Str("provider", c.Provider.Name()).
			Int("attempt", attempt+1).
			Int("retries", retries).
			Str("url", url).
			Err(err).
			Msg("Fetch attempt failed")

		if ctx.Err() != nil {
			break
		}
		if attempt < retries-1 {
			if err := c.sleep(ctx, Backoff(attempt, c.jitter())); err != nil {
				break
			}
		}
	}
	return nil, fmt.Errorf("%w: all %d attempts failed for %s: %v", ErrFetchBlocked, retries, url, lastErr)
}

func validate(html string) error {
	if len(html) < minBodyLength {
		return fmt.Errorf("%w (%d bytes)", errTooShort, len(html))
	}
	for _, m := range challengeMarkers {
		if strings.Contains(html, m) {
			return errChallenge
		}
	}
	return nil
}

func (c *Client) jitter() float64 {
	if c.Jitter != nil {
		return c.Jitter()
	}
	return rand.Float64()
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
