package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"reel_tracker/internal/extract"
	"reel_tracker/internal/model"
)

// DefaultActorID is the hosted scraping actor used when none is configured.
const DefaultActorID = "apify/instagram-reel-scraper"

const apifyBaseURL = "https://api.apify.com"

// Apify fetches metrics through a hosted scraping actor. It needs an access
// token; without one every fetch fails with ErrMissingToken.
type Apify struct {
	client  HTTPClient
	token   string
	actorID string
	baseURL string
}

// NewApify creates the actor-API provider. An empty actorID selects
// DefaultActorID.
func NewApify(client HTTPClient, token, actorID string) *Apify {
	if actorID == "" {
		actorID = DefaultActorID
	}
	return &Apify{
		client:  client,
		token:   token,
		actorID: actorID,
		baseURL: apifyBaseURL,
	}
}

// Name implements Provider.
func (p *Apify) Name() string {
	return "apify"
}

// Fetch implements Provider.
func (p *Apify) Fetch(ctx context.Context, postURL string) (model.Metrics, error) {
	if p.token == "" {
		return model.Metrics{}, ErrMissingToken
	}

	actorPath := strings.ReplaceAll(p.actorID, "/", "~")
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s",
		p.baseURL, actorPath, url.QueryEscape(p.token))

	payload, err := json.Marshal(map[string]any{"username": []string{postURL}})
	if err != nil {
		return model.Metrics{}, fmt.Errorf("marshal actor input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Metrics{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.Metrics{}, fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.Metrics{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return model.Metrics{}, fmt.Errorf("actor call failed: HTTP %d %s", resp.StatusCode, truncate(string(body), 300))
	}

	var items []any
	if err := json.Unmarshal(body, &items); err != nil {
		return model.Metrics{}, fmt.Errorf("decode actor items: %w", err)
	}
	if len(items) == 0 {
		return model.Metrics{}, fmt.Errorf("actor returned no items")
	}

	item, _ := items[0].(map[string]any)
	metrics := model.Metrics{
		Views:    firstNumber(item, "videoPlayCount", "videoViewCount", "playCount"),
		Likes:    firstNumber(item, "likesCount", "likes"),
		Comments: resolveComments(item),
	}
	if metrics.Empty() {
		return model.Metrics{}, fmt.Errorf("actor response missing views/likes/comments fields")
	}
	return metrics, nil
}

func firstNumber(item map[string]any, keys ...string) *int64 {
	for _, key := range keys {
		if n := extract.Number(item[key]); n != nil {
			return n
		}
	}
	return nil
}

// resolveComments handles both shapes the actor emits: a plain count field,
// or the comment objects themselves, whose length is the count.
func resolveComments(item map[string]any) *int64 {
	if n := extract.Number(item["commentsCount"]); n != nil {
		return n
	}
	if list, ok := item["comments"].([]any); ok {
		n := int64(len(list))
		return &n
	}
	return extract.Number(item["comments"])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
