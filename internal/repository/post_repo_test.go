package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/autoblog-publisher/internal/database"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostRepo(t *testing.T) (repository.PostStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return repository.NewPostRepo(&database.DB{DB: sqlDB}, 5*time.Second), mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func TestPostRepo_ListRecentOldestFirst(t *testing.T) {
	store, mock := newTestPostRepo(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT path, revision, created_at FROM posts")).
		WithArgs("posts", 2).
		WillReturnRows(sqlmock.NewRows([]string{"path", "revision", "created_at"}).
			AddRow("posts/newer.json", int64(3), base.Add(time.Hour)).
			AddRow("posts/older.json", int64(1), base))

	refs, err := store.ListRecent(context.Background(), "posts/", 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "posts/older.json", refs[0].Path)
	assert.Equal(t, "posts/newer.json", refs[1].Path)
	assert.Equal(t, "3", refs[1].Revision)
}

func TestPostRepo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		code      pq.ErrorCode
		transient bool
		conflict  bool
	}{
		{"connection failure", "08006", true, false},
		{"serialization failure", "40001", true, false},
		{"deadlock", "40P01", true, false},
		{"too many connections", "53300", true, false},
		{"admin shutdown", "57P01", true, false},
		{"unique violation", "23505", false, true},
		{"syntax error", "42601", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestPostRepo(t)
			mock.ExpectQuery(q("SELECT path, revision, created_at FROM posts")).
				WillReturnError(&pq.Error{Code: tt.code, Message: tt.name})

			_, err := store.ListAll(context.Background(), "posts")
			require.Error(t, err)
			assert.Equal(t, tt.transient, repository.IsTransient(err))
			assert.Equal(t, tt.conflict, errors.Is(err, repository.ErrConflict))
		})
	}
}

func TestPostRepo_GetRecordReadsPreviousRevision(t *testing.T) {
	store, mock := newTestPostRepo(t)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("FROM posts WHERE path = $1")).
		WithArgs("posts/kant.json").
		WillReturnRows(sqlmock.NewRows([]string{
			"slug", "title", "body", "body_format", "excerpt", "cover_image_path", "topic", "run_id",
			"revision", "previous_revision", "created_at", "updated_at",
		}).AddRow("kant", "Kant", "body", "markdown", "ex", nil, "", "run-2", int64(2), "1", created, created))

	post, err := store.GetRecord(context.Background(), models.RecordRef{Path: "posts/kant.json"})
	require.NoError(t, err)
	assert.Equal(t, 2, post.Revision)
	assert.Equal(t, "1", post.PreviousRevision)
	assert.Nil(t, post.CoverImagePath)
}

func TestPostRepo_GetRecordNotFound(t *testing.T) {
	store, mock := newTestPostRepo(t)
	mock.ExpectQuery(q("FROM posts WHERE path = $1")).
		WithArgs("posts/missing.json").
		WillReturnRows(sqlmock.NewRows([]string{"slug"}))

	_, err := store.GetRecord(context.Background(), models.RecordRef{Path: "posts/missing.json"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostRepo_UpdateStoresPreviousRevision(t *testing.T) {
	store, mock := newTestPostRepo(t)
	post := &models.Post{Slug: "kant", Title: "Kant", Body: "new body", BodyFormat: "markdown", RunID: "run-2", PreviousRevision: "1"}

	mock.ExpectQuery(q("previous_revision = $8")).
		WithArgs("Kant", "new body", "markdown", "", sqlmock.AnyArg(), "", "run-2", "1", sqlmock.AnyArg(), "posts/kant.json", 1).
		WillReturnRows(sqlmock.NewRows([]string{"revision"}).AddRow(int64(2)))

	rev, err := store.PutRecord(context.Background(), "posts/kant.json", post, "1")
	require.NoError(t, err)
	assert.Equal(t, "2", rev)
}

func TestPostRepo_UpdateStaleRevision(t *testing.T) {
	store, mock := newTestPostRepo(t)
	mock.ExpectQuery(q("UPDATE posts SET")).
		WillReturnRows(sqlmock.NewRows([]string{"revision"}))

	_, err := store.PutRecord(context.Background(), "posts/kant.json", &models.Post{Title: "Kant"}, "1")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPostRepo_CreateOverExisting(t *testing.T) {
	store, mock := newTestPostRepo(t)
	mock.ExpectExec(q("INSERT INTO posts")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.PutRecord(context.Background(), "posts/kant.json", &models.Post{Slug: "kant", Title: "Kant"}, "")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPostRepo_DeleteBinary(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes matching revision", func(t *testing.T) {
		store, mock := newTestPostRepo(t)
		mock.ExpectExec(q("DELETE FROM assets WHERE path = $1 AND revision = $2")).
			WithArgs("images/kant.png", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.DeleteBinary(ctx, "images/kant.png", "1"))
	})

	t.Run("stale revision is a conflict", func(t *testing.T) {
		store, mock := newTestPostRepo(t)
		mock.ExpectExec(q("DELETE FROM assets")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("SELECT revision FROM assets WHERE path = $1")).
			WithArgs("images/kant.png").
			WillReturnRows(sqlmock.NewRows([]string{"revision"}).AddRow(int64(2)))

		assert.ErrorIs(t, store.DeleteBinary(ctx, "images/kant.png", "1"), repository.ErrConflict)
	})

	t.Run("already gone", func(t *testing.T) {
		store, mock := newTestPostRepo(t)
		mock.ExpectExec(q("DELETE FROM assets")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("SELECT revision FROM assets")).
			WillReturnRows(sqlmock.NewRows([]string{"revision"}))

		assert.NoError(t, store.DeleteBinary(ctx, "images/kant.png", "1"))
	})
}

func TestPostRepo_CreateStoresEmptyCoverAsNull(t *testing.T) {
	empty, cover := "", "images/kant.png"
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		cover *string
		want  interface{}
	}{
		{"no cover", nil, nil},
		{"empty cover", &empty, nil},
		{"cover", &cover, "images/kant.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestPostRepo(t)
			post := &models.Post{Slug: "kant", Title: "Kant", Body: "b", BodyFormat: "markdown", CoverImagePath: tt.cover, RunID: "run-1", CreatedAt: created}

			mock.ExpectExec(q("INSERT INTO posts")).
				WithArgs("posts/kant.json", "posts", "kant", "Kant", "b", "markdown", "", tt.want, "", "run-1", created, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, 1))

			rev, err := store.PutRecord(context.Background(), "posts/kant.json", post, "")
			require.NoError(t, err)
			assert.Equal(t, "1", rev)
		})
	}
}

func TestPostRepo_ListNormalisesDir(t *testing.T) {
	for _, dir := range []string{"posts", "posts/", "./posts/", "posts/drafts/.."} {
		t.Run(dir, func(t *testing.T) {
			store, mock := newTestPostRepo(t)
			mock.ExpectQuery(q("WHERE dir = $1")).
				WithArgs("posts").
				WillReturnRows(sqlmock.NewRows([]string{"path", "revision", "created_at"}))

			refs, err := store.ListAll(context.Background(), dir)
			require.NoError(t, err)
			assert.Empty(t, refs)
		})
	}
}
