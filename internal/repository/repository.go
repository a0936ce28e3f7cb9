package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"time"

	"github.com/autoblog-publisher/internal/models"
)

var (
	// ErrNotFound is returned when nothing is stored at the requested path
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write loses an optimistic concurrency check:
	// the expected revision is stale, or a create-only write found an existing entry
	ErrConflict = errors.New("revision conflict")

	// ErrInvalidRecord is returned for stored content that does not decode as a post
	ErrInvalidRecord = errors.New("invalid record")
)

// TransientError wraps network, rate limit and server side failures that are
// worth retrying
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient store failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient store failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable at the store boundary
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// PostStore is a remote, versioned, key-addressable store of post records and
// binary assets. Revisions are opaque markers (a blob SHA, a row revision).
type PostStore interface {
	// ListRecent returns the limit most recently created records under dir,
	// oldest first
	ListRecent(ctx context.Context, dir string, limit int) ([]models.RecordRef, error)
	// ListAll returns every record under dir, newest first
	ListAll(ctx context.Context, dir string) ([]models.RecordRef, error)
	// GetRecord fails with ErrNotFound when the ref no longer exists
	GetRecord(ctx context.Context, ref models.RecordRef) (*models.Post, error)
	// PutRecord writes post at path. An empty expectedRevision means create only.
	PutRecord(ctx context.Context, path string, post *models.Post, expectedRevision string) (string, error)
	// PutBinary writes data at path with the same contract as PutRecord
	PutBinary(ctx context.Context, path string, data []byte, expectedRevision string) (string, error)
	// Exists returns the current revision of path, if anything is stored there
	Exists(ctx context.Context, path string) (string, bool, error)
	// DeleteBinary removes the asset at path if it is still at revision.
	// Nothing stored there is not an error.
	DeleteBinary(ctx context.Context, path, revision string) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Post PostStore
}

// New wraps a store backend
func New(store PostStore) *Repositories {
	return &Repositories{Post: store}
}

const (
	recordExt = ".json"
	imageExt  = ".png"
)

// RecordPath returns the storage key of the record for slug
func RecordPath(dir, slug string) string {
	return path.Join(dir, slug+recordExt)
}

// ImagePath returns the storage key of the cover image for slug
func ImagePath(dir, slug string) string {
	return path.Join(dir, slug+imageExt)
}

// SlugFromPath extracts the slug from a record path
func SlugFromPath(p string) string {
	return strings.TrimSuffix(path.Base(p), recordExt)
}

// IsRecordPath reports whether p names a post record
func IsRecordPath(p string) bool {
	return strings.HasSuffix(p, recordExt)
}

// callContext bounds a single store call
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// newestFirst reverses refs in place
func newestFirst(refs []models.RecordRef) []models.RecordRef {
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
	return refs
}

// tail keeps the last limit refs. limit <= 0 keeps nothing.
func tail(refs []models.RecordRef, limit int) []models.RecordRef {
	if limit <= 0 {
		return []models.RecordRef{}
	}
	if len(refs) > limit {
		return refs[len(refs)-limit:]
	}
	return refs
}

func clonePost(p *models.Post) *models.Post {
	if p == nil {
		return nil
	}
	cp := *p
	if p.CoverImagePath != nil {
		v := *p.CoverImagePath
		cp.CoverImagePath = &v
	}
	return &cp
}
