package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const scraperAPIBase = "https://api.scraperapi.com"

// ScraperAPI tries a premium proxy without rendering first and escalates to
// headless rendering on 403/500 or a transport error. It never relays cookies.
type ScraperAPI struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func (s *ScraperAPI) Name() string { return "scraperapi" }

func (s *ScraperAPI) buildURL(target string, render bool) string {
	base := s.Endpoint
	if base == "" {
		base = scraperAPIBase
	}
	q := url.Values{}
	q.Set("api_key", s.APIKey)
	q.Set("url", target)
	q.Set("country_code", "de")
	q.Set("premium", "true")
	if render {
		q.Set("render", "true")
	}
	return base + "?" + q.Encode()
}

func (s *ScraperAPI) Do(ctx context.Context, in Request) (*Response, error) {
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fast := timeout
	if fast > 30*time.Second {
		fast = 30 * time.Second
	}

	html, status, err := s.get(ctx, in, false, fast)
	if err == nil && status != http.StatusForbidden && status != http.StatusInternalServerError {
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("scraperapi HTTP %d", status)
		}
		return &Response{HTML: html}, nil
	}
	log.Warn().Str("provider", s.Name()).Int("status", status).AnErr("error", err).Msg("Escalating to render=true")

	html, status, err = s.get(ctx, in, true, timeout)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden || status == http.StatusInternalServerError {
		return nil, fmt.Errorf("scraperapi %d even with render=true", status)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("scraperapi HTTP %d", status)
	}
	return &Response{HTML: html}, nil
}

func (s *ScraperAPI) get(ctx context.Context, in Request, render bool, timeout time.Duration) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildURL(in.URL, render), nil)
	if err != nil {
		return "", 0, err
	}
	for k, v := range ChromeHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, err := readBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}
