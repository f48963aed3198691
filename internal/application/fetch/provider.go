package fetch

import (
	"context"
	"time"

	"carimport-backend/internal/config"
)

// Request is one unblocked fetch. Cookies is the "k=v; k2=v2" session string.
type Request struct {
	URL     string
	Cookies string
	Headers map[string]string
	Timeout time.Duration
}

// Response is the raw page. SetCookie is empty when the provider does not relay it.
type Response struct {
	HTML      string
	SetCookie string
}

// Provider fetches a page through a third-party unblocking service.
type Provider interface {
	Name() string
	Do(ctx context.Context, req Request) (*Response, error)
}

// NewProvider picks Bright Data when its token is set, else ScraperAPI.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch {
	case cfg.BrightDataToken != "":
		return &BrightData{Token: cfg.BrightDataToken, Zone: cfg.BrightDataZone}, nil
	case cfg.ScraperAPIKey != "":
		return &ScraperAPI{APIKey: cfg.ScraperAPIKey}, nil
	default:
		return nil, ErrMissingCredentials
	}
}
