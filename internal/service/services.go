package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/generation"
	"github.com/autoblog-publisher/internal/metrics"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/rs/zerolog"
)

var (
	// ErrPostNotFound is returned when no post exists for a slug
	ErrPostNotFound = errors.New("post not found")

	// ErrShuttingDown is returned for runs requested after Shutdown
	ErrShuttingDown = errors.New("publish service is shutting down")
)

// RunError is the failure of a publication run
type RunError struct {
	RunID  string
	Reason models.FailureReason
	Cause  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed (%s): %v", e.RunID, e.Reason, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// PublishService generates and persists posts
type PublishService interface {
	// Run executes one publication run. Concurrent calls for the same posts
	// directory join the run in flight. A failed run returns both the result
	// and a *RunError.
	Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error)
	// Republish regenerates the body of an existing post in place
	Republish(ctx context.Context, slug string) (*models.RunResult, error)
	// Shutdown cancels runs that have not started persisting and waits for the rest
	Shutdown(ctx context.Context) error
}

// PostService serves stored posts
type PostService interface {
	List(ctx context.Context) ([]models.PostListItem, error)
	Get(ctx context.Context, slug string) (*models.Post, error)
}

// SchedulerService triggers runs on a cron schedule
type SchedulerService interface {
	Start()
	Stop(ctx context.Context) error
	// NextRun returns the next scheduled tick, zero when not running
	NextRun() time.Time
}

// Services holds all service interfaces
type Services struct {
	Publish   PublishService
	Post      PostService
	Scheduler SchedulerService
}

// NewServices creates all services. The scheduler is nil when CRON_ENABLED is off.
func NewServices(repos *repository.Repositories, gen generation.Generator, m *metrics.Metrics, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay

	publishSvc := NewPublishService(PublishParams{
		Store:     repos.Post,
		Generator: gen,
		Publish:   cfg.Publish,
		PostsDir:  cfg.Store.PostsDir,
		ImagesDir: cfg.Store.ImagesDir,
		Retry:     policy,
		Metrics:   m,
	}, log)
	postSvc := newPostService(repos.Post, cfg.Store.PostsDir, retry.New(policy, repository.IsTransient, log), log)

	services := &Services{
		Publish: publishSvc,
		Post:    postSvc,
	}

	if cfg.Cron.Enabled {
		scheduler, err := newSchedulerService(publishSvc, cfg.Cron, log)
		if err != nil {
			return nil, err
		}
		services.Scheduler = scheduler
	}

	return services, nil
}
