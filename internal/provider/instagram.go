package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"reel_tracker/internal/extract"
	"reel_tracker/internal/model"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"

	// Body marker Instagram serves instead of the post when throttling.
	rateLimitMarker = "Please wait a few minutes before you try again"

	maxBodyBytes = 5 * 1024 * 1024
)

// Instagram scrapes metrics straight from the public post page, falling
// back to the JSON view and then the embed view when the page yields
// nothing.
type Instagram struct {
	client HTTPClient
}

// NewInstagram creates the direct-scrape provider with the given HTTP client.
func NewInstagram(client HTTPClient) *Instagram {
	return &Instagram{client: client}
}

// Name implements Provider.
func (p *Instagram) Name() string {
	return "instagram"
}

// Fetch implements Provider.
func (p *Instagram) Fetch(ctx context.Context, url string) (model.Metrics, error) {
	normalized := NormalizeURL(url)

	html, status, err := p.get(ctx, normalized)
	if err != nil {
		return model.Metrics{}, fmt.Errorf("post page request: %w", err)
	}
	if status >= 400 {
		return model.Metrics{}, fmt.Errorf("post page request failed: HTTP %d", status)
	}
	if strings.Contains(html, rateLimitMarker) {
		return model.Metrics{}, fmt.Errorf("instagram rate-limited the request")
	}

	metrics := extract.FromHTML(html)

	// Public posts sometimes expose a JSON payload the page itself lacks.
	if metrics.Empty() {
		if body, status, err := p.get(ctx, normalized+"/?__a=1&__d=dis"); err == nil && status < 400 {
			var data any
			if err := json.Unmarshal([]byte(body), &data); err == nil {
				metrics = extract.FromJSON(data)
			}
		}
	}

	if metrics.Empty() {
		if body, status, err := p.get(ctx, normalized+"/embed/captioned"); err == nil && status < 400 {
			metrics = extract.FromHTML(body)
		}
	}

	if metrics.Empty() {
		return model.Metrics{}, fmt.Errorf("no metrics parsed from %s", normalized)
	}
	return metrics, nil
}

func (p *Instagram) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return string(body), resp.StatusCode, nil
}
