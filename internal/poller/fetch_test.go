package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reel_tracker/internal/model"
	"reel_tracker/internal/provider"
)

// scriptedProvider returns the queued errors one per call, then succeeds.
type scriptedProvider struct {
	name    string
	errs    []error
	metrics model.Metrics
	calls   int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Fetch(ctx context.Context, url string) (model.Metrics, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return model.Metrics{}, err
	}
	return p.metrics, nil
}

func TestFetchSucceedsAfterTransientFailures(t *testing.T) {
	p := &scriptedProvider{
		name:    "apify",
		errs:    []error{errors.New("boom"), errors.New("boom again")},
		metrics: model.Metrics{Likes: int64Ptr(42)},
	}
	f := NewFetcher(3, p)
	f.SetBackoffUnit(0)

	metrics, name, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff("apify", name); diff != "" {
		t.Errorf("provider name mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.Metrics{Likes: int64Ptr(42)}, metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestFetchExhaustionJoinsDiagnostics(t *testing.T) {
	p := &scriptedProvider{
		name: "apify",
		errs: []error{errors.New("first"), errors.New("second")},
	}
	f := NewFetcher(2, p)
	f.SetBackoffUnit(0)

	_, _, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "apify attempt 1: first | apify attempt 2: second"
	if diff := cmp.Diff(want, err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchCapsDiagnostics(t *testing.T) {
	var errs []error
	for i := 1; i <= 6; i++ {
		errs = append(errs, fmt.Errorf("fail %d", i))
	}
	p := &scriptedProvider{name: "apify", errs: errs}
	f := NewFetcher(6, p)
	f.SetBackoffUnit(0)

	_, _, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := strings.Count(err.Error(), " | "); got != maxDiagnostics-1 {
		t.Errorf("joined %d failures, want %d: %v", got+1, maxDiagnostics, err)
	}
	if strings.Contains(err.Error(), "fail 5") {
		t.Errorf("error should not carry attempts past the cap: %v", err)
	}
}

func TestFetchMissingTokenIsNotRetried(t *testing.T) {
	p := &scriptedProvider{
		name: "apify",
		errs: []error{provider.ErrMissingToken, provider.ErrMissingToken, provider.ErrMissingToken},
	}
	f := NewFetcher(3, p)
	f.SetBackoffUnit(0)

	_, _, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestFetchFallsThroughProviderTiers(t *testing.T) {
	first := &scriptedProvider{
		name: "apify",
		errs: []error{errors.New("down"), errors.New("still down")},
	}
	second := &scriptedProvider{
		name:    "instagram",
		metrics: model.Metrics{Views: int64Ptr(2000)},
	}
	f := NewFetcher(2, first, second)
	f.SetBackoffUnit(0)

	metrics, name, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff("instagram", name); diff != "" {
		t.Errorf("provider name mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.Metrics{Views: int64Ptr(2000)}, metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchWithoutProviders(t *testing.T) {
	f := NewFetcher(2)

	_, _, err := f.Fetch(context.Background(), "https://www.instagram.com/reel/Cxyz123")
	if err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff("no providers configured", err.Error()); diff != "" {
		t.Errorf("error message mismatch (-want +got):\n%s", diff)
	}
}

func int64Ptr(n int64) *int64 {
	return &n
}
