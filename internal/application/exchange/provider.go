package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"carimport-backend/internal/pkg/constants"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	FrankfurterURL = "https://api.frankfurter.dev/v1/latest?base=EUR&symbols=CHF"

	CacheKey     = "fx:eur_chf"
	LastKnownKey = "fx:eur_chf:last_known"
	cacheTTL     = 24 * time.Hour
)

const (
	SourceOverride  = "override"
	SourceCache     = "cache"
	SourceLive      = "live"
	SourceLastKnown = "last_known"
	SourceFallback  = "fallback"
)

var ErrInvalidPayload = errors.New("exchange rate payload has no CHF rate")

// Quote is one EUR→CHF rate and where it came from.
type Quote struct {
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}

// Provider resolves the EUR→CHF rate. Redis is optional; without it the
// rate is cached in-process only.
type Provider struct {
	Override float64
	Redis    *redis.Client
	Endpoint string
	Client   *http.Client
	Now      func() time.Time

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
	lastKnown float64
}

func NewProvider(override float64, rdb *redis.Client) *Provider {
	return &Provider{
		Override: override,
		Redis:    rdb,
		Endpoint: FrankfurterURL,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Rate never fails; see Quote for the resolution order.
func (p *Provider) Rate(ctx context.Context) float64 {
	return p.Quote(ctx).Rate
}

// Quote tries, in order: the configured override, the 24h cache, the live
// API, the last rate ever fetched, and finally the built-in fallback.
func (p *Provider) Quote(ctx context.Context) Quote {
	if p.Override > 0 {
		return Quote{Rate: p.Override, Source: SourceOverride}
	}
	if r, ok := p.fresh(ctx); ok {
		return Quote{Rate: r, Source: SourceCache}
	}

	r, err := p.fetch(ctx)
	if err == nil {
		p.remember(ctx, r)
		return Quote{Rate: r, Source: SourceLive}
	}
	log.Warn().Err(err).Msg("exchange rate fetch failed")

	if r, ok := p.last(ctx); ok {
		return Quote{Rate: r, Source: SourceLastKnown}
	}
	return Quote{Rate: constants.FallbackEurChf, Source: SourceFallback}
}

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Provider) fresh(ctx context.Context) (float64, bool) {
	p.mu.Lock()
	if p.cached > 0 && p.now().Sub(p.fetchedAt) < cacheTTL {
		r := p.cached
		p.mu.Unlock()
		return r, true
	}
	p.mu.Unlock()

	if r, ok := p.redisFloat(ctx, CacheKey); ok {
		p.mu.Lock()
		p.cached, p.fetchedAt = r, p.now()
		p.mu.Unlock()
		return r, true
	}
	return 0, false
}

func (p *Provider) last(ctx context.Context) (float64, bool) {
	p.mu.Lock()
	r := p.lastKnown
	p.mu.Unlock()
	if r > 0 {
		return r, true
	}
	return p.redisFloat(ctx, LastKnownKey)
}

func (p *Provider) remember(ctx context.Context, r float64) {
	p.mu.Lock()
	p.cached, p.fetchedAt, p.lastKnown = r, p.now(), r
	p.mu.Unlock()

	if p.Redis == nil {
		return
	}
	v := strconv.FormatFloat(r, 'f', -1, 64)
	if err := p.Redis.Set(ctx, CacheKey, v, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("exchange rate cache write failed")
	}
	if err := p.Redis.Set(ctx, LastKnownKey, v, 0).Err(); err != nil {
		log.Warn().Err(err).Msg("exchange rate last-known write failed")
	}
}

func (p *Provider) redisFloat(ctx context.Context, key string) (float64, bool) {
	if p.Redis == nil {
		return 0, false
	}
	v, err := p.Redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("exchange rate cache read failed")
		}
		return 0, false
	}
	r, err := strconv.ParseFloat(v, 64)
	if err != nil || r <= 0 {
		return 0, false
	}
	return r, true
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

func (p *Provider) fetch(ctx context.Context) (float64, error) {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = FrankfurterURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return 0, fmt.Errorf("exchange rate API returned %d: %s", resp.StatusCode, string(body))
	}
	var out frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode exchange rate: %w", err)
	}
	r := out.Rates["CHF"]
	if r <= 0 {
		return 0, ErrInvalidPayload
	}
	return r, nil
}
