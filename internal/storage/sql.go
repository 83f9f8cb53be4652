package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registration.
	_ "modernc.org/sqlite"             // SQLite driver registration.

	"reel_tracker/internal/model"
	"reel_tracker/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQL implements Storage over database/sql, backed by SQLite or Postgres
// depending on the database URL. Queries are written with ? placeholders and
// rewritten to $n for Postgres.
type SQL struct {
	db *sql.DB
	pg bool
}

// IsPostgresURL reports whether a database URL selects the Postgres backend.
func IsPostgresURL(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

// Open opens the database at databaseURL and runs pending migrations.
// Anything that is not a postgres:// URL is treated as a SQLite path.
func Open(databaseURL string) (*SQL, error) {
	pg := IsPostgresURL(databaseURL)

	var db *sql.DB
	var err error
	if pg {
		db, err = sql.Open("pgx", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	} else {
		db, err = sql.Open("sqlite", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("disable foreign keys: %w", err)
		}
	}

	if err := migrations.Run(db, pg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQL{db: db, pg: pg}, nil
}

// Close closes the underlying database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

// q rewrites ? placeholders to $n when running against Postgres.
func (s *SQL) q(query string) string {
	if !s.pg {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertIgnore renders an insert that silently skips conflicts on the given
// unique column, in whichever dialect is active.
func (s *SQL) insertIgnore(stmt, conflictColumn string) string {
	if s.pg {
		return stmt + fmt.Sprintf(" ON CONFLICT(%s) DO NOTHING", conflictColumn)
	}
	return strings.Replace(stmt, "INSERT INTO", "INSERT OR IGNORE INTO", 1)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// UpsertCampaign inserts a campaign if needed and returns its ID.
func (s *SQL) UpsertCampaign(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	now := time.Now().UTC().Format(timeLayout)

	stmt := s.insertIgnore(`INSERT INTO campaigns(name, created_at) VALUES (?, ?)`, "name")
	if _, err := s.db.ExecContext(ctx, s.q(stmt), name, now); err != nil {
		return 0, fmt.Errorf("insert campaign: %w", err)
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id FROM campaigns WHERE name = ?`), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select campaign id: %w", err)
	}
	return id, nil
}

// GetCampaign returns a single campaign by its ID.
func (s *SQL) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	var c model.Campaign
	var created sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, name, created_at FROM campaigns WHERE id = ?`), id,
	).Scan(&c.ID, &c.Name, &created)
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	if created.Valid {
		c.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &c, nil
}

// UpsertCreator inserts a creator by handle if needed, fills in any profile
// fields that are still missing, and returns the creator's ID. The handle is
// trimmed and stripped of a leading @.
func (s *SQL) UpsertCreator(ctx context.Context, creator *model.Creator) (int64, error) {
	handle := strings.TrimPrefix(strings.TrimSpace(creator.Handle), "@")
	now := time.Now().UTC().Format(timeLayout)

	stmt := s.insertIgnore(
		`INSERT INTO creators(handle, created_at, display_name, profile_url, followers_text) VALUES (?, ?, ?, ?, ?)`,
		"handle")
	_, err := s.db.ExecContext(ctx, s.q(stmt),
		handle, now,
		nullIfEmpty(creator.DisplayName),
		nullIfEmpty(creator.ProfileURL),
		nullIfEmpty(creator.FollowersText),
	)
	if err != nil {
		return 0, fmt.Errorf("insert creator: %w", err)
	}

	// Fill in profile fields learned later without clobbering known values.
	_, err = s.db.ExecContext(ctx, s.q(
		`UPDATE creators
		 SET display_name = COALESCE(NULLIF(?, ''), display_name),
		     profile_url = COALESCE(NULLIF(?, ''), profile_url),
		     followers_text = COALESCE(NULLIF(?, ''), followers_text)
		 WHERE handle = ?`),
		strings.TrimSpace(creator.DisplayName),
		strings.TrimSpace(creator.ProfileURL),
		strings.TrimSpace(creator.FollowersText),
		handle,
	)
	if err != nil {
		return 0, fmt.Errorf("update creator profile: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, s.q(`SELECT id FROM creators WHERE handle = ?`), handle).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select creator id: %w", err)
	}
	creator.ID = id
	creator.Handle = handle
	return id, nil
}

// GetCreator returns a single creator by its ID.
func (s *SQL) GetCreator(ctx context.Context, id int64) (*model.Creator, error) {
	var c model.Creator
	var displayName, profileURL, followers, created sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, handle, display_name, profile_url, followers_text, created_at
		 FROM creators WHERE id = ?`), id,
	).Scan(&c.ID, &c.Handle, &displayName, &profileURL, &followers, &created)
	if err != nil {
		return nil, fmt.Errorf("scan creator: %w", err)
	}
	c.DisplayName = displayName.String
	c.ProfileURL = profileURL.String
	c.FollowersText = followers.String
	if created.Valid {
		c.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &c, nil
}

// CreatePost inserts a new tracked post and populates its ID and CreatedAt.
// Returns ErrDuplicatePost when the URL is already tracked.
func (s *SQL) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO posts(campaign_id, creator_id, post_url, shortcode, poll_interval_sec, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`),
		post.CampaignID, post.CreatorID, post.URL, nullIfEmpty(post.Shortcode), post.PollIntervalSec, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePost
		}
		return fmt.Errorf("insert post: %w", err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`SELECT id FROM posts WHERE post_url = ?`), post.URL).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("select post id: %w", err)
	}
	post.Active = true
	post.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetPost returns a single post by its ID.
func (s *SQL) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, campaign_id, creator_id, post_url, shortcode, poll_interval_sec, active, created_at, last_polled_at
		 FROM posts WHERE id = ?`), id,
	)
	return scanPost(row)
}

// ListActivePosts returns every post still under observation.
func (s *SQL) ListActivePosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, campaign_id, creator_id, post_url, shortcode, poll_interval_sec, active, created_at, last_polled_at
		 FROM posts WHERE active = 1 ORDER BY id`),
	)
	if err != nil {
		return nil, fmt.Errorf("query active posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ListPollTargets returns the schedule fields of every active post.
func (s *SQL) ListPollTargets(ctx context.Context) ([]model.PollTarget, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, last_polled_at, poll_interval_sec FROM posts WHERE active = 1 ORDER BY id`),
	)
	if err != nil {
		return nil, fmt.Errorf("query poll targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var targets []model.PollTarget
	for rows.Next() {
		var t model.PollTarget
		var lastPolled sql.NullString
		if err := rows.Scan(&t.ID, &lastPolled, &t.PollIntervalSec); err != nil {
			return nil, fmt.Errorf("scan poll target: %w", err)
		}
		t.LastPolledAt = lastPolled.String
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// UpdateLastPolled records when a post was last attempted.
func (s *SQL) UpdateLastPolled(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE posts SET last_polled_at = ? WHERE id = ?`),
		at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("update last polled: %w", err)
	}
	return nil
}

// AppendSnapshot appends one measurement record. Snapshots are never
// updated afterwards.
func (s *SQL) AppendSnapshot(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO snapshots(post_id, fetched_at, likes, comments, views, source_status, source_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		snap.PostID,
		snap.FetchedAt.UTC().Format(timeLayout),
		snap.Metrics.Likes, snap.Metrics.Comments, snap.Metrics.Views,
		snap.Status,
		nullIfEmpty(snap.Error),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// InsertScheduledSnapshot writes the placeholder record a post gets at
// creation time, before any fetch has run.
func (s *SQL) InsertScheduledSnapshot(ctx context.Context, postID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO snapshots(post_id, fetched_at, likes, comments, views, source_status, source_error)
		 VALUES (?, ?, NULL, NULL, NULL, ?, NULL)`),
		postID, time.Now().UTC().Format(timeLayout), model.StatusScheduled,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns a post's snapshots ordered by fetch time.
func (s *SQL) ListSnapshots(ctx context.Context, postID int64) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT id, post_id, fetched_at, likes, comments, views, source_status, source_error
		 FROM snapshots WHERE post_id = ? ORDER BY fetched_at, id`), postID,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var fetched string
		var likes, comments, views sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(&snap.ID, &snap.PostID, &fetched, &likes, &comments, &views, &snap.Status, &errText); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.FetchedAt, _ = time.Parse(timeLayout, fetched)
		snap.Metrics.Likes = nullableInt(likes)
		snap.Metrics.Comments = nullableInt(comments)
		snap.Metrics.Views = nullableInt(views)
		snap.Error = errText.String
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteCreator removes a creator together with their posts and snapshots,
// returning how many posts and snapshots went with them.
func (s *SQL) DeleteCreator(ctx context.Context, id int64) (int64, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(
		`DELETE FROM snapshots WHERE post_id IN (SELECT id FROM posts WHERE creator_id = ?)`), id)
	if err != nil {
		return 0, 0, fmt.Errorf("delete snapshots: %w", err)
	}
	snapshots, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, s.q(`DELETE FROM posts WHERE creator_id = ?`), id)
	if err != nil {
		return 0, 0, fmt.Errorf("delete posts: %w", err)
	}
	posts, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM creators WHERE id = ?`), id); err != nil {
		return 0, 0, fmt.Errorf("delete creator: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return posts, snapshots, nil
}

// DeleteAllData wipes every table and reports the deleted row counts.
func (s *SQL) DeleteAllData(ctx context.Context) (PurgeCounts, error) {
	var counts PurgeCounts
	for _, step := range []struct {
		stmt string
		dst  *int64
	}{
		{`DELETE FROM snapshots`, &counts.Snapshots},
		{`DELETE FROM posts`, &counts.Posts},
		{`DELETE FROM creators`, &counts.Creators},
		{`DELETE FROM campaigns`, &counts.Campaigns},
	} {
		res, err := s.db.ExecContext(ctx, step.stmt)
		if err != nil {
			return counts, fmt.Errorf("purge: %w", err)
		}
		*step.dst, _ = res.RowsAffected()
	}
	return counts, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (*model.Post, error) {
	var p model.Post
	var active int
	var shortcode, created, lastPolled sql.NullString
	err := row.Scan(&p.ID, &p.CampaignID, &p.CreatorID, &p.URL, &shortcode,
		&p.PollIntervalSec, &active, &created, &lastPolled)
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	p.Active = active == 1
	p.Shortcode = shortcode.String
	p.LastPolledAt = lastPolled.String
	if created.Valid {
		p.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &p, nil
}
