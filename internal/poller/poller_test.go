package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"

	"reel_tracker/internal/model"
	"reel_tracker/internal/provider"
	"reel_tracker/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQL {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedPosts inserts n active posts under one campaign and creator and
// returns their IDs.
func seedPosts(t *testing.T, s *storage.SQL, n int) []int64 {
	t.Helper()
	ctx := context.Background()

	campaignID, err := s.UpsertCampaign(ctx, "Spring Launch")
	if err != nil {
		t.Fatalf("upsert campaign: %v", err)
	}
	creatorID, err := s.UpsertCreator(ctx, &model.Creator{Handle: "some.creator"})
	if err != nil {
		t.Fatalf("upsert creator: %v", err)
	}

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		post := &model.Post{
			CampaignID:      campaignID,
			CreatorID:       creatorID,
			URL:             fmt.Sprintf("https://www.instagram.com/reel/Post%03d", i),
			Shortcode:       fmt.Sprintf("Post%03d", i),
			PollIntervalSec: 86400,
		}
		if err := s.CreatePost(ctx, post); err != nil {
			t.Fatalf("create post %d: %v", i, err)
		}
		ids = append(ids, post.ID)
	}
	return ids
}

// gaugeProvider records the peak number of concurrent Fetch calls.
type gaugeProvider struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
}

func (p *gaugeProvider) Name() string { return "gauge" }

func (p *gaugeProvider) Fetch(ctx context.Context, url string) (model.Metrics, error) {
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	p.calls.Add(1)
	time.Sleep(10 * time.Millisecond)
	likes := int64(100)
	return model.Metrics{Likes: &likes}, nil
}

func TestPollIDsBoundsConcurrency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := seedPosts(t, s, 12)

	gauge := &gaugeProvider{}
	fetcher := NewFetcher(1, gauge)
	p := New(s, fetcher, 5, 2, discardLogger())

	p.PollIDs(ctx, ids)

	if got := gauge.calls.Load(); got != 12 {
		t.Errorf("fetch calls = %d, want 12", got)
	}
	if peak := gauge.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}

	for _, id := range ids {
		snaps, err := s.ListSnapshots(ctx, id)
		if err != nil {
			t.Fatalf("list snapshots for %d: %v", id, err)
		}
		if len(snaps) != 1 {
			t.Fatalf("post %d has %d snapshots, want 1", id, len(snaps))
		}
		if diff := cmp.Diff("ok:gauge", snaps[0].Status); diff != "" {
			t.Errorf("status mismatch (-want +got):\n%s", diff)
		}
		post, err := s.GetPost(ctx, id)
		if err != nil {
			t.Fatalf("get post %d: %v", id, err)
		}
		if post.LastPolledAt == "" {
			t.Errorf("post %d last polled not recorded", id)
		}
	}
}

// failingProvider fails every call.
type failingProvider struct{}

func (failingProvider) Name() string { return "apify" }

func (failingProvider) Fetch(ctx context.Context, url string) (model.Metrics, error) {
	return model.Metrics{}, fmt.Errorf("actor call failed: HTTP 500")
}

func TestPollPostRecordsFailureAndAdvancesLastPolled(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := seedPosts(t, s, 1)

	fetcher := NewFetcher(2, failingProvider{})
	fetcher.SetBackoffUnit(0)
	p := New(s, fetcher, 5, 2, discardLogger())

	p.PollPost(ctx, ids[0])

	snaps, err := s.ListSnapshots(ctx, ids[0])
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if diff := cmp.Diff(model.StatusError, snaps[0].Status); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(snaps[0].Error, "apify attempt 2") {
		t.Errorf("error should carry both attempts: %q", snaps[0].Error)
	}

	post, err := s.GetPost(ctx, ids[0])
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.LastPolledAt == "" {
		t.Error("last polled should advance even when the fetch fails")
	}
}

func TestPollPostUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	gauge := &gaugeProvider{}
	p := New(s, NewFetcher(1, gauge), 5, 2, discardLogger())

	p.PollPost(ctx, 9999)

	if got := gauge.calls.Load(); got != 0 {
		t.Errorf("fetch calls = %d, want 0", got)
	}
}

func TestPollDueEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := seedPosts(t, s, 1)

	defer gock.Off()
	client := &http.Client{}
	gock.InterceptClient(client)

	gock.New("https://api.apify.com").
		Post("/v2/acts/apify~instagram-reel-scraper/run-sync-get-dataset-items").
		Reply(200).
		JSON([]map[string]any{{
			"likesCount":     "12.5k",
			"commentsCount":  float64(482),
			"videoPlayCount": float64(90000),
		}})

	apify := provider.NewApify(client, "test-token", "")
	fetcher := NewFetcher(2, apify)
	fetcher.SetBackoffUnit(0)
	p := New(s, fetcher, 5, 2, discardLogger())

	polled, err := p.PollDue(ctx)
	if err != nil {
		t.Fatalf("poll due: %v", err)
	}
	if polled != 1 {
		t.Fatalf("polled = %d, want 1", polled)
	}

	snaps, err := s.ListSnapshots(ctx, ids[0])
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	want := model.Snapshot{
		ID:        snaps[0].ID,
		PostID:    ids[0],
		FetchedAt: snaps[0].FetchedAt,
		Metrics: model.Metrics{
			Likes:    int64Ptr(12500),
			Comments: int64Ptr(482),
			Views:    int64Ptr(90000),
		},
		Status: "ok:apify",
	}
	if diff := cmp.Diff(want, snaps[0]); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// The post is no longer due right after a poll.
	again, err := p.PollDue(ctx)
	if err != nil {
		t.Fatalf("poll due again: %v", err)
	}
	if again != 0 {
		t.Errorf("polled = %d after a fresh poll, want 0", again)
	}
}

func TestPollAllIgnoresDueTimes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ids := seedPosts(t, s, 3)

	for _, id := range ids {
		if err := s.UpdateLastPolled(ctx, id, time.Now().UTC()); err != nil {
			t.Fatalf("update last polled: %v", err)
		}
	}

	gauge := &gaugeProvider{}
	p := New(s, NewFetcher(1, gauge), 5, 2, discardLogger())

	polled, err := p.PollAll(ctx)
	if err != nil {
		t.Fatalf("poll all: %v", err)
	}
	if polled != 3 {
		t.Errorf("polled = %d, want 3", polled)
	}
	if got := gauge.calls.Load(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
}
