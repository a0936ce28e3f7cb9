package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/service"
)

// MockPublishService is a mock implementation of PublishService
type MockPublishService struct {
	mu            sync.Mutex
	RunFunc       func(ctx context.Context, req models.RunRequest) (*models.RunResult, error)
	RepublishFunc func(ctx context.Context, slug string) (*models.RunResult, error)
	Requests      []models.RunRequest
	Republished   []string
	ShutdownCalls int
}

// Verify interface compliance
var _ service.PublishService = (*MockPublishService)(nil)

func NewMockPublishService() *MockPublishService {
	return &MockPublishService{}
}

func (m *MockPublishService) Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.RunFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	now := time.Now().UTC()
	return &models.RunResult{
		RunID:      "test-run-id",
		Trigger:    req.Trigger,
		State:      models.RunStateDone,
		Slug:       "test-post",
		Post:       &models.Post{Slug: "test-post", Title: "Test Post", Body: "Body", CreatedAt: now},
		StartedAt:  now,
		FinishedAt: now,
	}, nil
}

func (m *MockPublishService) Republish(ctx context.Context, slug string) (*models.RunResult, error) {
	m.mu.Lock()
	m.Republished = append(m.Republished, slug)
	fn := m.RepublishFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, slug)
	}
	return &models.RunResult{
		RunID:   "test-republish-id",
		Trigger: models.TriggerRepublish,
		State:   models.RunStateDone,
		Slug:    slug,
		Post:    &models.Post{Slug: slug, Title: "Test Post", Body: "New body", Revision: 2, PreviousRevision: "1"},
	}, nil
}

func (m *MockPublishService) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShutdownCalls++
	return nil
}

// RunCount returns the number of Run calls
func (m *MockPublishService) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	Posts   []*models.Post
	ListErr error
	GetErr  error
}

var _ service.PostService = (*MockPostService)(nil)

func NewMockPostService(posts ...*models.Post) *MockPostService {
	return &MockPostService{Posts: posts}
}

func (m *MockPostService) List(ctx context.Context) ([]models.PostListItem, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	items := make([]models.PostListItem, 0, len(m.Posts))
	for _, p := range m.Posts {
		items = append(items, p.ListItem())
	}
	return items, nil
}

func (m *MockPostService) Get(ctx context.Context, slug string) (*models.Post, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, p := range m.Posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, service.ErrPostNotFound
}

// MockSchedulerService is a mock implementation of SchedulerService
type MockSchedulerService struct {
	Started bool
	Stopped bool
	Next    time.Time
}

var _ service.SchedulerService = (*MockSchedulerService)(nil)

func (m *MockSchedulerService) Start() {
	m.Started = true
}

func (m *MockSchedulerService) Stop(ctx context.Context) error {
	m.Stopped = true
	return nil
}

func (m *MockSchedulerService) NextRun() time.Time {
	return m.Next
}
