package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// schedulerService runs the publication pipeline on a cron schedule
type schedulerService struct {
	publish PublishService
	cron    *cron.Cron
	entryID cron.EntryID
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
}

func newSchedulerService(publish PublishService, cfg config.CronConfig, log zerolog.Logger) (*schedulerService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid cron timezone %q: %w", cfg.Timezone, err)
	}

	s := &schedulerService{
		publish: publish,
		log:     log.With().Str("service", "scheduler").Logger(),
	}
	cronLog := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	id, err := s.cron.AddFunc(cfg.Expression, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cfg.Expression, err)
	}
	s.entryID = id

	s.log.Info().Str("expression", cfg.Expression).Str("timezone", loc.String()).Msg("Scheduler configured")
	return s, nil
}

// NewSchedulerService creates a SchedulerService that triggers publish.Run
func NewSchedulerService(publish PublishService, cfg config.CronConfig, log zerolog.Logger) (SchedulerService, error) {
	return newSchedulerService(publish, cfg, log)
}

// Start begins firing on schedule
func (s *schedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.log.Info().Time("next_run", s.cron.Entry(s.entryID).Next).Msg("Scheduler started")
}

// Stop halts the schedule and waits for a tick in progress
func (s *schedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled run: %w", ctx.Err())
	}
}

// NextRun returns the next scheduled tick
func (s *schedulerService) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// tick runs one publication. Failures wait for the next tick.
func (s *schedulerService) tick() {
	result, err := s.publish.Run(context.Background(), models.RunRequest{Trigger: models.TriggerSchedule})
	if err != nil {
		var runErr *RunError
		if errors.As(err, &runErr) {
			s.log.Error().
				Err(runErr.Cause).
				Str("run_id", runErr.RunID).
				Str("reason", string(runErr.Reason)).
				Msg("Scheduled run failed")
			return
		}
		s.log.Error().Err(err).Msg("Scheduled run did not start")
		return
	}
	s.log.Info().
		Str("run_id", result.RunID).
		Str("slug", result.Slug).
		Bool("shared", result.Shared).
		Msg("Scheduled run published a post")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
