package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"reel_tracker/internal/model"
	"reel_tracker/internal/storage"
)

// Poller runs orchestrated fetches for tracked posts and records each
// attempt as a snapshot.
type Poller struct {
	store         storage.Storage
	fetcher       *Fetcher
	batchSize     int
	maxConcurrent int
	log           *slog.Logger
}

// New creates a Poller. Batch size and concurrency are clamped to at
// least 1.
func New(store storage.Storage, fetcher *Fetcher, batchSize, maxConcurrent int, log *slog.Logger) *Poller {
	if batchSize < 1 {
		batchSize = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Poller{
		store:         store,
		fetcher:       fetcher,
		batchSize:     batchSize,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// PollPost fetches current metrics for one post and appends the result as
// a snapshot. The post's last-polled timestamp advances to the fetch start
// time whether the fetch succeeded or not, so a permanently failing post is
// still polled no more often than its interval.
func (p *Poller) PollPost(ctx context.Context, id int64) {
	post, err := p.store.GetPost(ctx, id)
	if err != nil {
		p.log.Error("load post", "post_id", id, "error", err)
		return
	}
	if !post.Active {
		return
	}

	start := time.Now().UTC().Truncate(time.Second)

	snap := &model.Snapshot{PostID: id, FetchedAt: start}
	metrics, providerName, err := p.fetcher.Fetch(ctx, post.URL)
	if err != nil {
		snap.Status = model.StatusError
		snap.Error = err.Error()
		p.log.Warn("fetch failed", "post_id", id, "url", post.URL, "error", err)
	} else {
		snap.Status = model.StatusOK(providerName)
		snap.Metrics = metrics
		p.log.Debug("fetched metrics", "post_id", id, "provider", providerName)
	}

	if err := p.store.AppendSnapshot(ctx, snap); err != nil {
		p.log.Error("append snapshot", "post_id", id, "error", err)
	}
	if err := p.store.UpdateLastPolled(ctx, id, start); err != nil {
		p.log.Error("update last polled", "post_id", id, "error", err)
	}
}

// PollIDs polls every given post exactly once. IDs are processed in
// consecutive chunks of the batch size; chunks run strictly one after
// another, and within a chunk at most min(maxConcurrent, batchSize)
// fetches are in flight at once. One post's failure never cancels the
// others.
func (p *Poller) PollIDs(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}

	limit := min(p.maxConcurrent, p.batchSize)
	for start := 0; start < len(ids); start += p.batchSize {
		chunk := ids[start:min(start+p.batchSize, len(ids))]
		p.pollChunk(ctx, chunk, limit)
	}
}

func (p *Poller) pollChunk(ctx context.Context, chunk []int64, limit int) {
	var wg sync.WaitGroup

	// A chunk that fits under the limit needs no gate at all.
	if len(chunk) <= limit {
		for _, id := range chunk {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				p.PollPost(ctx, id)
			}(id)
		}
		wg.Wait()
		return
	}

	sem := semaphore.NewWeighted(int64(limit))
	for _, id := range chunk {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			p.PollPost(ctx, id)
		}(id)
	}
	wg.Wait()
}

// PollDue polls every active post whose interval has elapsed and returns
// how many were selected.
func (p *Poller) PollDue(ctx context.Context) (int, error) {
	targets, err := p.store.ListPollTargets(ctx)
	if err != nil {
		return 0, err
	}
	due := SelectDue(targets, time.Now().UTC())
	if len(due) == 0 {
		return 0, nil
	}
	p.PollIDs(ctx, due)
	return len(due), nil
}

// PollAll polls every active post regardless of due time and returns how
// many were polled.
func (p *Poller) PollAll(ctx context.Context) (int, error) {
	posts, err := p.store.ListActivePosts(ctx)
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}
	ids := make([]int64, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}
	p.PollIDs(ctx, ids)
	return len(ids), nil
}
