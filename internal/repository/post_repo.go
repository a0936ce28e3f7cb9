package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/autoblog-publisher/internal/database"
	"github.com/autoblog-publisher/internal/models"
	"github.com/lib/pq"
)

// postRepo is the PostgreSQL implementation of PostStore. Revisions are the
// integer row revision rendered as a string.
type postRepo struct {
	db          *database.DB
	callTimeout time.Duration
}

// NewPostRepo creates a PostStore backed by PostgreSQL
func NewPostRepo(db *database.DB, callTimeout time.Duration) PostStore {
	return &postRepo{db: db, callTimeout: callTimeout}
}

// ListRecent returns the limit newest records under dir, oldest first
func (r *postRepo) ListRecent(ctx context.Context, dir string, limit int) ([]models.RecordRef, error) {
	if limit <= 0 {
		return []models.RecordRef{}, nil
	}
	query := `
		SELECT path, revision, created_at FROM posts
		WHERE dir = $1
		ORDER BY created_at DESC, path DESC
		LIMIT $2
	`
	refs, err := r.queryRefs(ctx, "list", query, cleanDir(dir), limit)
	if err != nil {
		return nil, err
	}
	return newestFirst(refs), nil
}

// ListAll returns every record under dir, newest first
func (r *postRepo) ListAll(ctx context.Context, dir string) ([]models.RecordRef, error) {
	query := `
		SELECT path, revision, created_at FROM posts
		WHERE dir = $1
		ORDER BY created_at DESC, path DESC
	`
	return r.queryRefs(ctx, "list_all", query, cleanDir(dir))
}

func (r *postRepo) queryRefs(ctx context.Context, op, query string, args ...interface{}) ([]models.RecordRef, error) {
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(callCtx, query, args...)
	if err != nil {
		return nil, classifyPQ(ctx, op, err)
	}
	defer rows.Close()

	refs := []models.RecordRef{}
	for rows.Next() {
		var ref models.RecordRef
		var revision int
		if err := rows.Scan(&ref.Path, &revision, &ref.CreatedAt); err != nil {
			return nil, classifyPQ(ctx, op, err)
		}
		ref.Revision = strconv.Itoa(revision)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPQ(ctx, op, err)
	}
	return refs, nil
}

// GetRecord retrieves a post by path
func (r *postRepo) GetRecord(ctx context.Context, ref models.RecordRef) (*models.Post, error) {
	query := `
		SELECT slug, title, body, body_format, excerpt, cover_image_path, topic, run_id,
			revision, previous_revision, created_at, updated_at
		FROM posts WHERE path = $1
	`
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	var post models.Post
	var cover sql.NullString
	err := r.db.QueryRowContext(callCtx, query, ref.Path).Scan(
		&post.Slug, &post.Title, &post.Body, &post.BodyFormat, &post.Excerpt, &cover,
		&post.Topic, &post.RunID, &post.Revision, &post.PreviousRevision, &post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get %s: %w", ref.Path, ErrNotFound)
	}
	if err != nil {
		return nil, classifyPQ(ctx, "get", err)
	}
	if cover.Valid {
		post.CoverImagePath = &cover.String
	}
	return &post, nil
}

// PutRecord inserts a new post, or updates one whose revision still matches
func (r *postRepo) PutRecord(ctx context.Context, p string, post *models.Post, expectedRevision string) (string, error) {
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	now := time.Now().UTC()

	if expectedRevision == "" {
		query := `
			INSERT INTO posts (path, dir, slug, title, body, body_format, excerpt, cover_image_path,
				topic, run_id, revision, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
			ON CONFLICT (path) DO NOTHING
		`
		result, err := r.db.ExecContext(callCtx, query,
			p, path.Dir(p), post.Slug, post.Title, post.Body, post.BodyFormat, post.Excerpt,
			nullStringPtr(post.CoverImagePath), post.Topic, post.RunID, post.CreatedAt, now,
		)
		if err != nil {
			return "", classifyPQ(ctx, "put", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return "", fmt.Errorf("put %s: already exists: %w", p, ErrConflict)
		}
		return "1", nil
	}

	expected, err := strconv.Atoi(expectedRevision)
	if err != nil {
		return "", fmt.Errorf("put %s: invalid revision %q: %w", p, expectedRevision, ErrConflict)
	}
	query := `
		UPDATE posts SET
			title = $1, body = $2, body_format = $3, excerpt = $4, cover_image_path = $5,
			topic = $6, run_id = $7, previous_revision = $8, revision = revision + 1, updated_at = $9
		WHERE path = $10 AND revision = $11
		RETURNING revision
	`
	var revision int
	err = r.db.QueryRowContext(callCtx, query,
		post.Title, post.Body, post.BodyFormat, post.Excerpt, nullStringPtr(post.CoverImagePath),
		post.Topic, post.RunID, post.PreviousRevision, now, p, expected,
	).Scan(&revision)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("put %s: stale revision %s: %w", p, expectedRevision, ErrConflict)
	}
	if err != nil {
		return "", classifyPQ(ctx, "put", err)
	}
	return strconv.Itoa(revision), nil
}

// PutBinary stores an asset under the same revision contract as PutRecord
func (r *postRepo) PutBinary(ctx context.Context, p string, data []byte, expectedRevision string) (string, error) {
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	if expectedRevision == "" {
		query := `INSERT INTO assets (path, data, revision, created_at) VALUES ($1, $2, 1, $3) ON CONFLICT (path) DO NOTHING`
		result, err := r.db.ExecContext(callCtx, query, p, data, time.Now().UTC())
		if err != nil {
			return "", classifyPQ(ctx, "put_binary", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return "", fmt.Errorf("put %s: already exists: %w", p, ErrConflict)
		}
		return "1", nil
	}

	expected, err := strconv.Atoi(expectedRevision)
	if err != nil {
		return "", fmt.Errorf("put %s: invalid revision %q: %w", p, expectedRevision, ErrConflict)
	}
	var revision int
	err = r.db.QueryRowContext(callCtx,
		`UPDATE assets SET data = $1, revision = revision + 1 WHERE path = $2 AND revision = $3 RETURNING revision`,
		data, p, expected,
	).Scan(&revision)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("put %s: stale revision %s: %w", p, expectedRevision, ErrConflict)
	}
	if err != nil {
		return "", classifyPQ(ctx, "put_binary", err)
	}
	return strconv.Itoa(revision), nil
}

// Exists checks both records and assets for path
func (r *postRepo) Exists(ctx context.Context, p string) (string, bool, error) {
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	query := `
		SELECT revision FROM posts WHERE path = $1
		UNION ALL
		SELECT revision FROM assets WHERE path = $1
		LIMIT 1
	`
	var revision int
	err := r.db.QueryRowContext(callCtx, query, p).Scan(&revision)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, classifyPQ(ctx, "exists", err)
	}
	return strconv.Itoa(revision), true, nil
}

// DeleteBinary removes an asset still at revision
func (r *postRepo) DeleteBinary(ctx context.Context, p, revision string) error {
	expected, err := strconv.Atoi(revision)
	if err != nil {
		return fmt.Errorf("delete %s: invalid revision %q: %w", p, revision, ErrConflict)
	}
	callCtx, cancel := callContext(ctx, r.callTimeout)
	defer cancel()

	result, err := r.db.ExecContext(callCtx, `DELETE FROM assets WHERE path = $1 AND revision = $2`, p, expected)
	if err != nil {
		return classifyPQ(ctx, "delete_binary", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var current int
		err := r.db.QueryRowContext(callCtx, `SELECT revision FROM assets WHERE path = $1`, p).Scan(&current)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return classifyPQ(ctx, "delete_binary", err)
		}
		return fmt.Errorf("delete %s: stale revision %s: %w", p, revision, ErrConflict)
	}
	return nil
}

func cleanDir(dir string) string {
	return path.Clean(strings.TrimSuffix(dir, "/"))
}

// helper to convert an empty optional string to NULL
func nullStringPtr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// classifyPQ marks connection level and contention failures as transient
func classifyPQ(ctx context.Context, op string, err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		return &TransientError{Op: op, Err: err}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", // connection exception
			pqErr.Code == "40001", // serialization_failure
			pqErr.Code == "40P01", // deadlock_detected
			pqErr.Code == "53300", // too_many_connections
			pqErr.Code == "57P01": // admin_shutdown
			return &TransientError{Op: op, Err: err}
		case pqErr.Code == "23505": // unique_violation
			return fmt.Errorf("%s: %v: %w", op, err, ErrConflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &TransientError{Op: op, Err: err}
	}
	if IsTransient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
