// Package provider implements the external data sources that can yield an
// engagement metrics triple for a post URL.
package provider

import (
	"context"
	"errors"
	"net/http"

	"reel_tracker/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrMissingToken signals a configuration failure: the provider cannot run
// at all without its access token. Callers must not retry it.
var ErrMissingToken = errors.New("apify token is not configured")

// Provider fetches current metrics for one post URL from a specific
// external source. Implementations fail independently; an all-nil triple is
// reported as an error, never returned.
type Provider interface {
	// Name identifies the provider in snapshot statuses ("ok:<name>").
	Name() string
	Fetch(ctx context.Context, url string) (model.Metrics, error)
}
