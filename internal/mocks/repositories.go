package mocks

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"

	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
)

type storedRecord struct {
	post     *models.Post
	revision int
}

type storedBinary struct {
	data     []byte
	revision int
}

// MockPostStore is an in-memory, versioned PostStore. It is safe for
// concurrent use.
type MockPostStore struct {
	mu       sync.Mutex
	Records  map[string]*storedRecord
	Binaries map[string]*storedBinary

	// Queued errors, consumed one per call before the store behaves normally
	ListErrors      []error
	PutRecordErrors []error
	PutBinaryErrors []error
	// GetErrors fails GetRecord for specific paths on every call
	GetErrors map[string]error

	// BeforePutRecord runs (unlocked) before each record write
	BeforePutRecord func(path string)

	// Writes lists every successful write path in order
	Writes []string
	// Deletes lists every removed asset path in order
	Deletes         []string
	ListRecentCalls int
	PutRecordCalls  int
}

// Verify interface compliance
var _ repository.PostStore = (*MockPostStore)(nil)

func NewMockPostStore() *MockPostStore {
	return &MockPostStore{
		Records:   make(map[string]*storedRecord),
		Binaries:  make(map[string]*storedBinary),
		GetErrors: make(map[string]error),
	}
}

// Seed stores post under dir without recording a write
func (m *MockPostStore) Seed(dir string, post *models.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *post
	m.Records[repository.RecordPath(dir, post.Slug)] = &storedRecord{post: &cp, revision: 1}
}

// Post returns a copy of the record stored at p
func (m *MockPostStore) Post(p string) (*models.Post, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[p]
	if !ok {
		return nil, false
	}
	cp := *rec.post
	return &cp, true
}

// HasBinary reports whether an asset is stored at p
func (m *MockPostStore) HasBinary(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Binaries[p]
	return ok
}

// BinaryCount returns the number of stored assets
func (m *MockPostStore) BinaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Binaries)
}

// RecordCount returns the number of records under dir
func (m *MockPostStore) RecordCount(dir string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for p := range m.Records {
		if path.Dir(p) == dir {
			n++
		}
	}
	return n
}

// WriteLog returns a copy of Writes
func (m *MockPostStore) WriteLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Writes...)
}

func (m *MockPostStore) sorted(dir string) []models.RecordRef {
	refs := make([]models.RecordRef, 0)
	for p, rec := range m.Records {
		if path.Dir(p) != dir {
			continue
		}
		refs = append(refs, models.RecordRef{Path: p, Revision: strconv.Itoa(rec.revision), CreatedAt: rec.post.CreatedAt})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].Path < refs[j].Path
		}
		return refs[i].CreatedAt.Before(refs[j].CreatedAt)
	})
	return refs
}

func (m *MockPostStore) ListRecent(ctx context.Context, dir string, limit int) ([]models.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListRecentCalls++
	if len(m.ListErrors) > 0 {
		err := m.ListErrors[0]
		m.ListErrors = m.ListErrors[1:]
		return nil, err
	}
	refs := m.sorted(dir)
	if limit <= 0 {
		return []models.RecordRef{}, nil
	}
	if len(refs) > limit {
		refs = refs[len(refs)-limit:]
	}
	return refs, nil
}

func (m *MockPostStore) ListAll(ctx context.Context, dir string) ([]models.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := m.sorted(dir)
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
	return refs, nil
}

func (m *MockPostStore) GetRecord(ctx context.Context, ref models.RecordRef) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.GetErrors[ref.Path]; ok {
		return nil, err
	}
	rec, ok := m.Records[ref.Path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", ref.Path, repository.ErrNotFound)
	}
	cp := *rec.post
	return &cp, nil
}

func (m *MockPostStore) PutRecord(ctx context.Context, p string, post *models.Post, expectedRevision string) (string, error) {
	if m.BeforePutRecord != nil {
		m.BeforePutRecord(p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutRecordCalls++
	if len(m.PutRecordErrors) > 0 {
		err := m.PutRecordErrors[0]
		m.PutRecordErrors = m.PutRecordErrors[1:]
		if err != nil {
			return "", err
		}
	}

	existing, exists := m.Records[p]
	cp := *post
	switch {
	case expectedRevision == "" && exists:
		return "", fmt.Errorf("put %s: %w", p, repository.ErrConflict)
	case expectedRevision == "":
		m.Records[p] = &storedRecord{post: &cp, revision: 1}
	case !exists || strconv.Itoa(existing.revision) != expectedRevision:
		return "", fmt.Errorf("put %s: %w", p, repository.ErrConflict)
	default:
		existing.revision++
		existing.post = &cp
	}
	m.Writes = append(m.Writes, p)
	return strconv.Itoa(m.Records[p].revision), nil
}

func (m *MockPostStore) PutBinary(ctx context.Context, p string, data []byte, expectedRevision string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.PutBinaryErrors) > 0 {
		err := m.PutBinaryErrors[0]
		m.PutBinaryErrors = m.PutBinaryErrors[1:]
		if err != nil {
			return "", err
		}
	}

	existing, exists := m.Binaries[p]
	switch {
	case expectedRevision == "" && exists:
		return "", fmt.Errorf("put %s: %w", p, repository.ErrConflict)
	case expectedRevision == "":
		m.Binaries[p] = &storedBinary{data: append([]byte(nil), data...), revision: 1}
	case !exists || strconv.Itoa(existing.revision) != expectedRevision:
		return "", fmt.Errorf("put %s: %w", p, repository.ErrConflict)
	default:
		existing.revision++
		existing.data = append([]byte(nil), data...)
	}
	m.Writes = append(m.Writes, p)
	return strconv.Itoa(m.Binaries[p].revision), nil
}

func (m *MockPostStore) Exists(ctx context.Context, p string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.Records[p]; ok {
		return strconv.Itoa(rec.revision), true, nil
	}
	if bin, ok := m.Binaries[p]; ok {
		return strconv.Itoa(bin.revision), true, nil
	}
	return "", false, nil
}

func (m *MockPostStore) DeleteBinary(ctx context.Context, p, revision string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bin, ok := m.Binaries[p]
	if !ok {
		return nil
	}
	if strconv.Itoa(bin.revision) != revision {
		return fmt.Errorf("delete %s: %w", p, repository.ErrConflict)
	}
	delete(m.Binaries, p)
	m.Deletes = append(m.Deletes, p)
	return nil
}
