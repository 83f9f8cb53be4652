package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"reel_tracker/internal/model"
)

// Dashboard rows coalesce each metric across snapshot history: the latest
// snapshot's value when present, otherwise the most recent snapshot where
// the field was non-null. A later snapshot with missing fields therefore
// never erases an earlier known value.
const dashboardQuery = `
	SELECT
		p.id AS post_id,
		p.post_url,
		p.last_polled_at,
		c.id AS campaign_id,
		c.name AS campaign_name,
		cr.id AS creator_id,
		cr.handle AS creator_handle,
		cr.display_name AS creator_name,
		cr.followers_text AS followers_text,
		COALESCE(
			s.likes,
			(SELECT s3.likes FROM snapshots s3 WHERE s3.post_id = p.id AND s3.likes IS NOT NULL ORDER BY s3.fetched_at DESC LIMIT 1)
		) AS likes,
		COALESCE(
			s.comments,
			(SELECT s3.comments FROM snapshots s3 WHERE s3.post_id = p.id AND s3.comments IS NOT NULL ORDER BY s3.fetched_at DESC LIMIT 1)
		) AS comments,
		COALESCE(
			s.views,
			(SELECT s3.views FROM snapshots s3 WHERE s3.post_id = p.id AND s3.views IS NOT NULL ORDER BY s3.fetched_at DESC LIMIT 1)
		) AS views,
		s.source_status,
		s.source_error,
		s.fetched_at
	FROM posts p
	JOIN campaigns c ON c.id = p.campaign_id
	JOIN creators cr ON cr.id = p.creator_id
	LEFT JOIN snapshots s ON s.id = (
		SELECT s2.id
		FROM snapshots s2
		WHERE s2.post_id = p.id
		ORDER BY s2.fetched_at DESC
		LIMIT 1
	)
	WHERE p.active = 1`

const dashboardOrder = ` ORDER BY c.name, cr.handle, p.id`

// Dashboard aggregates current values, totals, and per-campaign /
// per-creator rollups over every active post.
func (s *SQL) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx, dashboardQuery+dashboardOrder)
	if err != nil {
		return nil, fmt.Errorf("query dashboard: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return buildDashboard(rows)
}

// CampaignDashboard is the Dashboard restricted to one campaign.
func (s *SQL) CampaignDashboard(ctx context.Context, campaignID int64) (*model.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(dashboardQuery+` AND p.campaign_id = ?`+dashboardOrder), campaignID)
	if err != nil {
		return nil, fmt.Errorf("query campaign dashboard: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return buildDashboard(rows)
}

func buildDashboard(rows *sql.Rows) (*model.Dashboard, error) {
	dash := &model.Dashboard{GeneratedAt: time.Now().UTC()}
	campaignAgg := make(map[string]*model.GroupTotals)
	creatorAgg := make(map[string]*model.GroupTotals)

	for rows.Next() {
		var row model.PostOverview
		var creatorName, followers, status, errText, fetchedAt, lastPolled sql.NullString
		var likes, comments, views sql.NullInt64

		err := rows.Scan(
			&row.PostID, &row.URL, &lastPolled,
			&row.CampaignID, &row.CampaignName,
			&row.CreatorID, &row.CreatorHandle, &creatorName, &followers,
			&likes, &comments, &views,
			&status, &errText, &fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dashboard row: %w", err)
		}

		row.CreatorName = creatorName.String
		if row.CreatorName == "" {
			row.CreatorName = row.CreatorHandle
		}
		row.FollowersText = followers.String
		row.Metrics.Likes = nullableInt(likes)
		row.Metrics.Comments = nullableInt(comments)
		row.Metrics.Views = nullableInt(views)
		row.Status = status.String
		if row.Status == "" {
			row.Status = "pending"
		}
		row.Error = errText.String
		row.LastSnapshotAt = fetchedAt.String
		row.LastPolledAt = lastPolled.String
		dash.Posts = append(dash.Posts, row)

		likesN := likes.Int64
		commentsN := comments.Int64
		viewsN := views.Int64
		dash.Totals.Posts++
		dash.Totals.Likes += likesN
		dash.Totals.Comments += commentsN
		dash.Totals.Views += viewsN

		camp, ok := campaignAgg[row.CampaignName]
		if !ok {
			camp = &model.GroupTotals{ID: row.CampaignID, Name: row.CampaignName}
			campaignAgg[row.CampaignName] = camp
		}
		camp.Posts++
		camp.Likes += likesN
		camp.Comments += commentsN
		camp.Views += viewsN

		creator, ok := creatorAgg[row.CreatorHandle]
		if !ok {
			creator = &model.GroupTotals{ID: row.CreatorID, Name: row.CreatorHandle}
			creatorAgg[row.CreatorHandle] = creator
		}
		creator.Posts++
		creator.Likes += likesN
		creator.Comments += commentsN
		creator.Views += viewsN
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dashboard rows: %w", err)
	}

	dash.Campaigns = sortedGroups(campaignAgg)
	dash.Creators = sortedGroups(creatorAgg)
	return dash, nil
}

func sortedGroups(agg map[string]*model.GroupTotals) []model.GroupTotals {
	groups := make([]model.GroupTotals, 0, len(agg))
	for _, g := range agg {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
	})
	return groups
}
