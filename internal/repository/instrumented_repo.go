package repository

import (
	"context"
	"time"

	"github.com/autoblog-publisher/internal/metrics"
	"github.com/autoblog-publisher/internal/models"
)

// instrumentedRepo records call counts and latency for every store operation
type instrumentedRepo struct {
	next    PostStore
	metrics *metrics.Metrics
}

// WithMetrics wraps store so each call is observed on m
func WithMetrics(store PostStore, m *metrics.Metrics) PostStore {
	if m == nil {
		return store
	}
	return &instrumentedRepo{next: store, metrics: m}
}

func (r *instrumentedRepo) observe(op string, start time.Time, err error) {
	r.metrics.ObserveCall("store", op, err, time.Since(start))
}

func (r *instrumentedRepo) ListRecent(ctx context.Context, dir string, limit int) ([]models.RecordRef, error) {
	start := time.Now()
	refs, err := r.next.ListRecent(ctx, dir, limit)
	r.observe("list_recent", start, err)
	return refs, err
}

func (r *instrumentedRepo) ListAll(ctx context.Context, dir string) ([]models.RecordRef, error) {
	start := time.Now()
	refs, err := r.next.ListAll(ctx, dir)
	r.observe("list_all", start, err)
	return refs, err
}

func (r *instrumentedRepo) GetRecord(ctx context.Context, ref models.RecordRef) (*models.Post, error) {
	start := time.Now()
	post, err := r.next.GetRecord(ctx, ref)
	r.observe("get_record", start, err)
	return post, err
}

func (r *instrumentedRepo) PutRecord(ctx context.Context, path string, post *models.Post, expectedRevision string) (string, error) {
	start := time.Now()
	rev, err := r.next.PutRecord(ctx, path, post, expectedRevision)
	r.observe("put_record", start, err)
	return rev, err
}

func (r *instrumentedRepo) PutBinary(ctx context.Context, path string, data []byte, expectedRevision string) (string, error) {
	start := time.Now()
	rev, err := r.next.PutBinary(ctx, path, data, expectedRevision)
	r.observe("put_binary", start, err)
	return rev, err
}

func (r *instrumentedRepo) Exists(ctx context.Context, path string) (string, bool, error) {
	start := time.Now()
	rev, ok, err := r.next.Exists(ctx, path)
	r.observe("exists", start, err)
	return rev, ok, err
}

func (r *instrumentedRepo) DeleteBinary(ctx context.Context, path, revision string) error {
	start := time.Now()
	err := r.next.DeleteBinary(ctx, path, revision)
	r.observe("delete_binary", start, err)
	return err
}
