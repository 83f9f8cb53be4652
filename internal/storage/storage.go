// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"reel_tracker/internal/model"
)

// ErrDuplicatePost is returned when a post URL is already tracked.
var ErrDuplicatePost = errors.New("post URL already exists")

// PurgeCounts reports how many rows a full purge removed.
type PurgeCounts struct {
	Snapshots int64
	Posts     int64
	Creators  int64
	Campaigns int64
}

// Storage is the interface for all persistence operations. Snapshots are
// append-only: there is no update or delete for individual snapshots.
type Storage interface {
	UpsertCampaign(ctx context.Context, name string) (int64, error)
	GetCampaign(ctx context.Context, id int64) (*model.Campaign, error)

	UpsertCreator(ctx context.Context, creator *model.Creator) (int64, error)
	GetCreator(ctx context.Context, id int64) (*model.Creator, error)

	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	ListActivePosts(ctx context.Context) ([]model.Post, error)
	ListPollTargets(ctx context.Context) ([]model.PollTarget, error)
	UpdateLastPolled(ctx context.Context, id int64, at time.Time) error

	AppendSnapshot(ctx context.Context, snap *model.Snapshot) error
	InsertScheduledSnapshot(ctx context.Context, postID int64) error
	ListSnapshots(ctx context.Context, postID int64) ([]model.Snapshot, error)

	Dashboard(ctx context.Context) (*model.Dashboard, error)
	CampaignDashboard(ctx context.Context, campaignID int64) (*model.Dashboard, error)

	DeleteCreator(ctx context.Context, id int64) (posts, snapshots int64, err error)
	DeleteAllData(ctx context.Context) (PurgeCounts, error)

	Close() error
}
