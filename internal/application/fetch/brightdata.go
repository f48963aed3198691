package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const brightDataAPI = "https://api.brightdata.com/request"

type brightDataRequest struct {
	Zone    string            `json:"zone"`
	URL     string            `json:"url"`
	Format  string            `json:"format"`
	Country string            `json:"country"`
	Headers map[string]string `json:"headers"`
}

// BrightData calls the Web Unlocker REST endpoint with a German exit node.
type BrightData struct {
	Token    string
	Zone     string
	Endpoint string
	Client   *http.Client
}

func (b *BrightData) Name() string { return "brightdata" }

func (b *BrightData) endpoint() string {
	if b.Endpoint != "" {
		return b.Endpoint
	}
	return brightDataAPI
}

func (b *BrightData) zone() string {
	if b.Zone != "" {
		return b.Zone
	}
	return "web_unlocker1"
}

func (b *BrightData) Do(ctx context.Context, in Request) (*Response, error) {
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	forward := ChromeHeaders()
	for k, v := range in.Headers {
		forward[k] = v
	}
	if in.Cookies != "" {
		forward["Cookie"] = in.Cookies
	}
	bodyBytes, err := json.Marshal(brightDataRequest{
		Zone:    b.zone(),
		URL:     in.URL,
		Format:  "raw",
		Country: "de",
		Headers: forward,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
	req.Header.Set("Content-Type", "application/json")
	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > 300 {
			body = body[:300]
		}
		return nil, fmt.Errorf("bright data API %d: %s", resp.StatusCode, body)
	}
	return &Response{HTML: string(body), SetCookie: strings.Join(resp.Header.Values("Set-Cookie"), ", ")}, nil
}
