// Package model defines the domain types used across the application.
package model

import "time"

// Campaign groups tracked posts under a single marketing campaign.
type Campaign struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Creator is the author of one or more tracked posts.
type Creator struct {
	ID            int64
	Handle        string
	DisplayName   string
	ProfileURL    string
	FollowersText string
	CreatedAt     time.Time
}

// Post is a single post URL under periodic metric observation.
// LastPolledAt carries the stored timestamp verbatim; an empty string means
// the post has never been polled. The due calculator parses it itself so a
// corrupt value can still select the post for polling.
type Post struct {
	ID              int64
	CampaignID      int64
	CreatorID       int64
	URL             string
	Shortcode       string
	PollIntervalSec int
	Active          bool
	CreatedAt       time.Time
	LastPolledAt    string
}

// PollTarget is the slice of a post the due calculator needs.
type PollTarget struct {
	ID              int64
	LastPolledAt    string
	PollIntervalSec int
}

// Metrics holds one engagement measurement. Every field is independently
// optional: nil means the source did not report the value, which is distinct
// from a reported zero.
type Metrics struct {
	Likes    *int64
	Comments *int64
	Views    *int64
}

// Empty reports whether no field carries a value.
func (m Metrics) Empty() bool {
	return m.Likes == nil && m.Comments == nil && m.Views == nil
}

// Snapshot statuses.
const (
	StatusScheduled = "scheduled"
	StatusError     = "error"
)

// StatusOK returns the success status for the given provider identifier.
func StatusOK(provider string) string {
	return "ok:" + provider
}

// Snapshot is one immutable, timestamped measurement (or failure record)
// for a post. Snapshots are append-only and never updated.
type Snapshot struct {
	ID        int64
	PostID    int64
	FetchedAt time.Time
	Metrics   Metrics
	Status    string
	Error     string
}

// Totals aggregates display values over a set of posts. Unknown metric
// fields count as zero here; these are rollups, not measurements.
type Totals struct {
	Posts    int
	Likes    int64
	Comments int64
	Views    int64
}

// GroupTotals is a per-campaign or per-creator rollup line.
type GroupTotals struct {
	ID   int64
	Name string
	Totals
}

// PostOverview is one dashboard row: the post joined with its owners and its
// current metric values coalesced across snapshot history (latest non-null
// value per field).
type PostOverview struct {
	PostID         int64
	CampaignID     int64
	CampaignName   string
	CreatorID      int64
	CreatorHandle  string
	CreatorName    string
	FollowersText  string
	URL            string
	Metrics        Metrics
	Status         string
	Error          string
	LastSnapshotAt string
	LastPolledAt   string
}

// Dashboard is the full aggregation the control surface renders.
type Dashboard struct {
	GeneratedAt time.Time
	Totals      Totals
	Campaigns   []GroupTotals
	Creators    []GroupTotals
	Posts       []PostOverview
}
