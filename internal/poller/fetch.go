package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"reel_tracker/internal/model"
	"reel_tracker/internal/provider"
)

// maxDiagnostics bounds how many attempt failures make it into the terminal
// error message.
const maxDiagnostics = 4

// defaultBackoffUnit is the base inter-attempt delay; attempt n waits
// n * unit before attempt n+1.
const defaultBackoffUnit = 1500 * time.Millisecond

// Fetcher orchestrates metric fetches: each provider tier is attempted up
// to the configured retry count with a linearly growing backoff, and
// failures travel as values, not panics. The default setup runs a single
// tier; the tier list exists so callers can extend the same shape.
type Fetcher struct {
	providers []provider.Provider
	retries   int
	backoff   time.Duration
}

// NewFetcher creates a Fetcher that tries each provider up to retries
// times. At least one attempt is always made.
func NewFetcher(retries int, providers ...provider.Provider) *Fetcher {
	if retries < 1 {
		retries = 1
	}
	return &Fetcher{
		providers: providers,
		retries:   retries,
		backoff:   defaultBackoffUnit,
	}
}

// SetBackoffUnit overrides the base inter-attempt delay (useful for testing).
func (f *Fetcher) SetBackoffUnit(d time.Duration) {
	f.backoff = d
}

// Fetch returns the first successful metrics triple together with the
// identity of the provider that produced it. On exhaustion it fails with
// the first collected attempt diagnostics joined into one message.
//
// A missing-token configuration failure is never retried; it consumes the
// tier's single diagnostic and moves on.
func (f *Fetcher) Fetch(ctx context.Context, url string) (model.Metrics, string, error) {
	var diagnostics []string

	for _, p := range f.providers {
		attempt := 0
		waits := 0
		backoff := retry.WithMaxRetries(uint64(f.retries-1), retry.BackoffFunc(func() (time.Duration, bool) {
			waits++
			return time.Duration(waits) * f.backoff, false
		}))

		var metrics model.Metrics
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempt++
			m, ferr := p.Fetch(ctx, url)
			if ferr != nil {
				diagnostics = append(diagnostics, fmt.Sprintf("%s attempt %d: %v", p.Name(), attempt, ferr))
				if errors.Is(ferr, provider.ErrMissingToken) {
					return ferr
				}
				return retry.RetryableError(ferr)
			}
			metrics = m
			return nil
		})
		if err == nil {
			return metrics, p.Name(), nil
		}
	}

	if len(diagnostics) == 0 {
		return model.Metrics{}, "", errors.New("no providers configured")
	}
	if len(diagnostics) > maxDiagnostics {
		diagnostics = diagnostics[:maxDiagnostics]
	}
	return model.Metrics{}, "", errors.New(strings.Join(diagnostics, " | "))
}
