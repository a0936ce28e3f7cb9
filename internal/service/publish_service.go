package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/generation"
	"github.com/autoblog-publisher/internal/metrics"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/autoblog-publisher/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PublishParams wires a PublishService. Zero Clock, Rand, NewID and Sleep
// fall back to the real implementations.
type PublishParams struct {
	Store     repository.PostStore
	Generator generation.Generator
	Publish   config.PublishConfig
	PostsDir  string
	ImagesDir string
	Retry     retry.Policy
	Metrics   *metrics.Metrics

	Clock func() time.Time
	Rand  *rand.Rand
	NewID func() string
	Sleep func(ctx context.Context, d time.Duration) error
}

// publishService is the concrete implementation of PublishService
type publishService struct {
	store      repository.PostStore
	gen        generation.Generator
	cfg        config.PublishConfig
	postsDir   string
	imagesDir  string
	storeRetry *retry.Retrier
	genRetry   *retry.Retrier
	deriver    *validation.SlugDeriver
	metrics    *metrics.Metrics
	log        zerolog.Logger

	now   func() time.Time
	newID func() string

	randMu sync.Mutex
	rand   *rand.Rand

	// runs for the same key share one execution
	group singleflight.Group

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	stopCtx context.Context
	stop    context.CancelFunc
}

// NewPublishService creates the publication orchestrator
func NewPublishService(p PublishParams, log zerolog.Logger) PublishService {
	log = log.With().Str("service", "publish").Logger()

	storeRetry := retry.New(p.Retry, repository.IsTransient, log)
	genRetry := retry.New(p.Retry, generation.IsTransient, log)
	if p.Sleep != nil {
		storeRetry = storeRetry.WithSleep(p.Sleep)
		genRetry = genRetry.WithSleep(p.Sleep)
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.NewID == nil {
		p.NewID = uuid.NewString
	}

	deriver := validation.NewSlugDeriver()
	deriver.Now = p.Clock

	stopCtx, stop := context.WithCancel(context.Background())

	s := &publishService{
		store:      p.Store,
		gen:        p.Generator,
		cfg:        p.Publish,
		postsDir:   p.PostsDir,
		imagesDir:  p.ImagesDir,
		storeRetry: storeRetry,
		genRetry:   genRetry,
		deriver:    deriver,
		metrics:    p.Metrics,
		log:        log,
		now:        p.Clock,
		newID:      p.NewID,
		rand:       p.Rand,
		stopCtx:    stopCtx,
		stop:       stop,
	}

	if p.Publish.ImageEnabled {
		if _, ok := p.Generator.(generation.ImageGenerator); !ok {
			log.Warn().Msg("Image generation enabled but the generation backend cannot produce images; posts will have no cover image")
		}
	}

	return s
}

// run carries the state of one execution
type run struct {
	result *models.RunResult
	// work is cancelled by shutdown or the run budget; budget only by the latter
	work   context.Context
	budget context.Context
	log    zerolog.Logger
}

func (r *run) enter(state models.RunState) {
	r.result.State = state
	r.log.Info().Str("state", string(state)).Msg("Run state changed")
}

// draft is generated content before it has an identity
type draft struct {
	title    string
	markdown string
	image    []byte
	topic    string
}

// Run executes a publication run, joining one already in flight
func (s *publishService) Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	if req.Trigger == "" {
		req.Trigger = models.TriggerHTTP
	}
	return s.join(ctx, s.postsDir, func() (*models.RunResult, error) {
		return s.execute(req)
	})
}

// Republish regenerates the body of the post stored under slug
func (s *publishService) Republish(ctx context.Context, slug string) (*models.RunResult, error) {
	if !validation.IsValidSlug(slug) {
		return nil, fmt.Errorf("republish %q: %w", slug, ErrPostNotFound)
	}
	return s.join(ctx, "republish:"+repository.RecordPath(s.postsDir, slug), func() (*models.RunResult, error) {
		return s.executeRepublish(slug)
	})
}

// join runs fn once per key. Callers that joined an execution they did not
// start get a copy of the result marked shared. The execution is detached
// from ctx: a caller giving up does not cancel it.
func (s *publishService) join(ctx context.Context, key string, fn func() (*models.RunResult, error)) (*models.RunResult, error) {
	leader := false
	ch := s.group.DoChan(key, func() (interface{}, error) {
		leader = true
		return fn()
	})

	select {
	case res := <-ch:
		result, _ := res.Val.(*models.RunResult)
		if result != nil && !leader {
			cp := *result
			cp.Shared = true
			result = &cp
		}
		return result, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting runs, cancels those not yet persisting and waits
// for the rest
func (s *publishService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("Publish service stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight runs: %w", ctx.Err())
	}
}

// begin registers a run unless shutdown has started
func (s *publishService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// start sets up the contexts, logger and result of a run. The returned
// cleanup must be called with the run's final error.
func (s *publishService) start(trigger models.RunTrigger) (*run, func(*error)) {
	result := &models.RunResult{
		RunID:     s.newID(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}
	log := s.log.With().Str("run_id", result.RunID).Str("trigger", string(trigger)).Logger()
	inFlightDone := s.metrics.RunStarted()

	var budget context.Context
	var cancelBudget context.CancelFunc
	if s.cfg.RunTimeout > 0 {
		budget, cancelBudget = context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	} else {
		budget, cancelBudget = context.WithCancel(context.Background())
	}
	work, cancelWork := context.WithCancel(budget)
	stopAfter := context.AfterFunc(s.stopCtx, cancelWork)

	r := &run{result: result, work: work, budget: budget, log: log}
	log.Info().Msg("Run started")

	cleanup := func(errp *error) {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("state", string(result.State)).Msg("Run panicked - recovered")
			*errp = s.fail(r, reasonForState(result.State), fmt.Errorf("panic: %v", p))
		}
		stopAfter()
		cancelWork()
		cancelBudget()
		s.finish(r, *errp)
		inFlightDone()
		s.wg.Done()
	}
	return r, cleanup
}

func (s *publishService) execute(req models.RunRequest) (result *models.RunResult, err error) {
	if !s.begin() {
		return nil, ErrShuttingDown
	}
	r, cleanup := s.start(req.Trigger)
	defer cleanup(&err)

	result = r.result
	err = s.publish(r, req)
	return result, err
}

func (s *publishService) publish(r *run, req models.RunRequest) error {
	r.enter(models.RunStateFetching)
	exclusions, err := s.fetchExclusions(r)
	if err != nil {
		return s.fail(r, models.ReasonSourceUnavailable, err)
	}
	r.log.Info().Int("exclusions", len(exclusions)).Msg("Fetched recent titles")

	r.enter(models.RunStateGenerating)
	topic := req.Topic
	if topic == "" {
		topic = s.pickTopic()
	}
	title, err := s.generateTitle(r, exclusions, topic)
	s.metrics.ObserveTitleAttempts(r.result.TitleAttempts)
	if err != nil {
		return s.fail(r, models.ReasonGenerationFailed, err)
	}
	r.log.Info().Str("title", title).Int("attempts", r.result.TitleAttempts).Msg("Title generated")

	d, err := s.generateContent(r, title)
	if err != nil {
		return s.fail(r, models.ReasonGenerationFailed, err)
	}
	d.topic = topic

	post, err := s.compose(r, d)
	if err != nil {
		return s.fail(r, models.ReasonGenerationFailed, err)
	}

	// last point at which shutdown aborts the run
	if err := r.work.Err(); err != nil {
		return s.fail(r, reasonForState(r.result.State), err)
	}

	r.enter(models.RunStatePersisting)
	if err := s.persist(r, post, d.image); err != nil {
		return err
	}

	r.result.Slug = post.Slug
	r.result.Post = post
	r.enter(models.RunStateDone)
	return nil
}

// fetchExclusions returns the titles of the most recent posts, oldest first
func (s *publishService) fetchExclusions(r *run) ([]string, error) {
	var refs []models.RecordRef
	err := s.storeRetry.Do(r.work, "list_recent", func(ctx context.Context) error {
		var err error
		refs, err = s.store.ListRecent(ctx, s.postsDir, s.cfg.WindowSize)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}

	titles := make([]string, 0, len(refs))
	for _, ref := range refs {
		var post *models.Post
		err := s.storeRetry.Do(r.work, "get_record", func(ctx context.Context) error {
			var err error
			post, err = s.store.GetRecord(ctx, ref)
			return err
		})
		if errors.Is(err, repository.ErrNotFound) {
			r.log.Warn().Str("path", ref.Path).Msg("Listed post vanished before it could be read, skipping")
			continue
		}
		if errors.Is(err, repository.ErrInvalidRecord) {
			r.log.Warn().Err(err).Str("path", ref.Path).Msg("Listed post is unreadable, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ref.Path, err)
		}
		titles = append(titles, post.Title)
	}
	return titles, nil
}

// generateTitle asks for titles until one is not a near-duplicate of the
// exclusions, adding each rejected candidate to the list
func (s *publishService) generateTitle(r *run, exclusions []string, topic string) (string, error) {
	excl := append([]string(nil), exclusions...)

	for attempt := 1; attempt <= s.cfg.TitleAttempts; attempt++ {
		r.result.TitleAttempts = attempt

		var candidate string
		err := s.genRetry.Do(r.work, "generate_title", func(ctx context.Context) error {
			var err error
			candidate, err = s.gen.GenerateTitle(ctx, excl, topic)
			return err
		})

		var genErr *generation.GenerationError
		switch {
		case err == nil && !validation.IsDuplicateTitle(candidate, excl):
			return candidate, nil
		case err == nil:
		case errors.Is(err, generation.ErrDuplicateTitle) && errors.As(err, &genErr) && genErr.Output != "":
			candidate = genErr.Output
		default:
			return "", err
		}

		r.log.Warn().Str("candidate", candidate).Int("attempt", attempt).Msg("Generated title repeats a recent post, retrying")
		if !containsTitle(excl, candidate) {
			excl = append(excl, candidate)
		}
	}

	return "", &generation.GenerationError{
		Op:    "title",
		Cause: fmt.Errorf("no unique title after %d attempts: %w", s.cfg.TitleAttempts, generation.ErrDuplicateTitle),
	}
}

// generateContent produces the body and, when enabled, the cover image
// concurrently
func (s *publishService) generateContent(r *run, title string) (*draft, error) {
	d := &draft{title: title}
	imageGen, withImage := s.imageGenerator()

	g, gctx := errgroup.WithContext(r.work)
	g.Go(func() error {
		return s.genRetry.Do(gctx, "generate_body", func(ctx context.Context) error {
			body, err := s.gen.GenerateBody(ctx, title, s.cfg.StyleHint)
			d.markdown = body
			return err
		})
	})

	var imageErr error
	if withImage {
		r.enter(models.RunStateImageGenerating)
		g.Go(func() error {
			data, err := s.generateImage(gctx, imageGen, title)
			if err == nil {
				d.image = data
				return nil
			}
			if s.cfg.ImageFailurePolicy == config.ImageFailurePolicyFail {
				return fmt.Errorf("cover image: %w", err)
			}
			imageErr = err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if imageErr != nil {
		r.log.Warn().Err(imageErr).Msg("Cover image generation failed, publishing without a cover image")
	}
	return d, nil
}

func (s *publishService) generateImage(ctx context.Context, imageGen generation.ImageGenerator, title string) ([]byte, error) {
	var prompt string
	err := s.genRetry.Do(ctx, "generate_image_prompt", func(ctx context.Context) error {
		var err error
		prompt, err = imageGen.GenerateImagePrompt(ctx, title)
		return err
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.genRetry.Do(ctx, "generate_image", func(ctx context.Context) error {
		var err error
		data, err = imageGen.GenerateImage(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &generation.GenerationError{Op: "image", Cause: generation.ErrEmptyOutput}
	}
	return data, nil
}

func (s *publishService) imageGenerator() (generation.ImageGenerator, bool) {
	if !s.cfg.ImageEnabled {
		return nil, false
	}
	imageGen, ok := s.gen.(generation.ImageGenerator)
	return imageGen, ok
}

// compose builds the record for d, without slug or image path
func (s *publishService) compose(r *run, d *draft) (*models.Post, error) {
	body, format, err := s.renderBody(d.markdown)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &models.Post{
		Title:      d.title,
		Body:       body,
		BodyFormat: format,
		Excerpt:    s.excerpt(d.markdown),
		Topic:      d.topic,
		RunID:      r.result.RunID,
		Revision:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *publishService) renderBody(md string) (string, string, error) {
	if s.cfg.BodyFormat != config.BodyFormatHTML {
		return md, config.BodyFormatMarkdown, nil
	}
	html, err := generation.RenderHTML(md)
	if err != nil {
		return "", "", err
	}
	return html, config.BodyFormatHTML, nil
}

func (s *publishService) excerpt(md string) string {
	if s.cfg.ExcerptStrategy == config.ExcerptPlaceholder {
		return s.cfg.ExcerptPlaceholder
	}
	if excerpt := generation.DeriveExcerpt(md, generation.DefaultExcerptLength); excerpt != "" {
		return excerpt
	}
	return s.cfg.ExcerptPlaceholder
}

// persist writes the cover image and then the record, both create-only. A
// conflict on either write moves the post to a disambiguated slug once.
func (s *publishService) persist(r *run, post *models.Post, image []byte) error {
	base := s.deriver.Derive(post.Title)
	slug, err := s.freeSlug(r, base)
	if err != nil {
		return s.fail(r, models.ReasonRecordPersistFailed, err)
	}

	// slugs known to be taken fail validation if they come back around
	validator := validation.NewValidator()
	if slug != base {
		validator.AddSlug(base)
	}

	for attempt := 1; ; attempt++ {
		post.Slug = slug
		post.CoverImagePath = nil
		if image != nil {
			imagePath := repository.ImagePath(s.imagesDir, slug)
			post.CoverImagePath = &imagePath
		}

		if errs := validator.ValidatePost(post, base); len(errs) > 0 {
			return s.fail(r, models.ReasonRecordPersistFailed, joinValidationErrors(errs))
		}

		var imageRevision string
		if image != nil {
			rev, err := s.writeImage(r, *post.CoverImagePath, image)
			if errors.Is(err, repository.ErrConflict) && attempt == 1 {
				validator.AddSlug(slug)
				slug = s.disambiguate(r, base, "image already exists")
				continue
			}
			if err != nil {
				return s.fail(r, models.ReasonAssetPersistFailed, err)
			}
			imageRevision = rev
		}

		recordPath := repository.RecordPath(s.postsDir, slug)
		err := s.storeRetry.Do(r.budget, "put_record", func(ctx context.Context) error {
			_, err := s.store.PutRecord(ctx, recordPath, post, "")
			return err
		})
		if errors.Is(err, repository.ErrConflict) && s.ownedByRun(r, recordPath) {
			err = nil
		}
		if err != nil && image != nil {
			// the record will not reference it
			s.discardImage(r, *post.CoverImagePath, imageRevision)
		}
		if errors.Is(err, repository.ErrConflict) && attempt == 1 {
			validator.AddSlug(slug)
			slug = s.disambiguate(r, base, "record already exists")
			continue
		}
		if err != nil {
			return s.fail(r, models.ReasonRecordPersistFailed, err)
		}

		r.log.Info().Str("slug", slug).Str("path", recordPath).Msg("Post persisted")
		return nil
	}
}

// freeSlug returns base, or a disambiguated variant when a record exists there
func (s *publishService) freeSlug(r *run, base string) (string, error) {
	var exists bool
	err := s.storeRetry.Do(r.budget, "exists", func(ctx context.Context) error {
		var err error
		_, exists, err = s.store.Exists(ctx, repository.RecordPath(s.postsDir, base))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("check slug %s: %w", base, err)
	}
	if !exists {
		return base, nil
	}
	return s.disambiguate(r, base, "slug already taken"), nil
}

func (s *publishService) disambiguate(r *run, base, why string) string {
	slug := validation.Disambiguate(base, "")
	r.log.Info().Str("slug", base).Str("disambiguated", slug).Msg("Disambiguating slug: " + why)
	return slug
}

// writeImage stores the image and confirms it is visible before the record
// that references it is written. It returns the revision of the stored image.
func (s *publishService) writeImage(r *run, imagePath string, data []byte) (string, error) {
	var revision string
	err := s.storeRetry.Do(r.budget, "put_binary", func(ctx context.Context) error {
		var err error
		revision, err = s.store.PutBinary(ctx, imagePath, data, "")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write image %s: %w", imagePath, err)
	}

	var visible bool
	err = s.storeRetry.Do(r.budget, "exists", func(ctx context.Context) error {
		var err error
		_, visible, err = s.store.Exists(ctx, imagePath)
		return err
	})
	if err == nil && !visible {
		err = errors.New("not visible after write")
	}
	if err != nil {
		s.discardImage(r, imagePath, revision)
		return "", fmt.Errorf("confirm image %s: %w", imagePath, err)
	}
	return revision, nil
}

// discardImage removes an image this run wrote but no record references
func (s *publishService) discardImage(r *run, imagePath, revision string) {
	err := s.storeRetry.Do(r.budget, "delete_binary", func(ctx context.Context) error {
		return s.store.DeleteBinary(ctx, imagePath, revision)
	})
	if err != nil {
		r.log.Error().Err(err).Str("path", imagePath).Msg("Failed to remove unreferenced image")
		return
	}
	r.log.Info().Str("path", imagePath).Msg("Removed unreferenced image")
}

// ownedByRun reports whether the record at path was written by this run, as
// happens when a write succeeded but its response was lost and retried
func (s *publishService) ownedByRun(r *run, recordPath string) bool {
	post, err := s.store.GetRecord(r.budget, models.RecordRef{Path: recordPath})
	return err == nil && post.RunID == r.result.RunID
}

func (s *publishService) executeRepublish(slug string) (result *models.RunResult, err error) {
	if !s.begin() {
		return nil, ErrShuttingDown
	}
	r, cleanup := s.start(models.TriggerRepublish)
	defer cleanup(&err)
	r.log = r.log.With().Str("slug", slug).Logger()

	result = r.result
	err = s.republish(r, slug)
	if errors.Is(err, ErrPostNotFound) {
		return nil, err
	}
	return result, err
}

func (s *publishService) republish(r *run, slug string) error {
	recordPath := repository.RecordPath(s.postsDir, slug)

	r.enter(models.RunStateFetching)
	var revision string
	var exists bool
	err := s.storeRetry.Do(r.work, "exists", func(ctx context.Context) error {
		var err error
		revision, exists, err = s.store.Exists(ctx, recordPath)
		return err
	})
	if err != nil {
		return s.fail(r, models.ReasonSourceUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("republish %s: %w", slug, ErrPostNotFound)
	}

	var post *models.Post
	err = s.storeRetry.Do(r.work, "get_record", func(ctx context.Context) error {
		var err error
		post, err = s.store.GetRecord(ctx, models.RecordRef{Path: recordPath, Revision: revision})
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("republish %s: %w", slug, ErrPostNotFound)
	}
	if err != nil {
		return s.fail(r, models.ReasonSourceUnavailable, err)
	}

	r.enter(models.RunStateGenerating)
	var md string
	err = s.genRetry.Do(r.work, "generate_body", func(ctx context.Context) error {
		var err error
		md, err = s.gen.GenerateBody(ctx, post.Title, s.cfg.StyleHint)
		return err
	})
	if err != nil {
		return s.fail(r, models.ReasonGenerationFailed, err)
	}
	body, format, err := s.renderBody(md)
	if err != nil {
		return s.fail(r, models.ReasonGenerationFailed, err)
	}

	if err := r.work.Err(); err != nil {
		return s.fail(r, reasonForState(r.result.State), err)
	}

	r.enter(models.RunStatePersisting)
	post.Slug = slug
	post.Body = body
	post.BodyFormat = format
	post.Excerpt = s.excerpt(md)
	post.RunID = r.result.RunID
	post.PreviousRevision = revision
	post.UpdatedAt = s.now().UTC()
	if post.Revision < 1 {
		post.Revision = 1
	}
	post.Revision++

	err = s.storeRetry.Do(r.budget, "put_record", func(ctx context.Context) error {
		_, err := s.store.PutRecord(ctx, recordPath, post, revision)
		return err
	})
	if err != nil {
		return s.fail(r, models.ReasonRecordPersistFailed, err)
	}

	r.result.Slug = slug
	r.result.Post = post
	r.enter(models.RunStateDone)
	return nil
}

// fail records the failure on the run. Budget expiry and shutdown take
// precedence over the reason of the step that observed them.
func (s *publishService) fail(r *run, reason models.FailureReason, cause error) error {
	switch {
	case errors.Is(r.budget.Err(), context.DeadlineExceeded):
		reason = models.ReasonTimeout
	case errors.Is(cause, context.Canceled) && s.stopCtx.Err() != nil:
		reason = models.ReasonCancelled
	}
	r.result.Failure = &models.RunFailure{Reason: reason, Cause: cause.Error()}
	return &RunError{RunID: r.result.RunID, Reason: reason, Cause: cause}
}

func (s *publishService) finish(r *run, err error) {
	result := r.result
	result.FinishedAt = s.now().UTC()
	elapsed := result.FinishedAt.Sub(result.StartedAt)
	result.DurationMs = elapsed.Milliseconds()

	outcome := "success"
	if err != nil {
		outcome = "error"
		if result.Failure != nil {
			outcome = string(result.Failure.Reason)
		}
		r.log.Error().
			Err(err).
			Str("failed_state", string(result.State)).
			Str("outcome", outcome).
			Int64("duration_ms", result.DurationMs).
			Msg("Run failed")
		result.State = models.RunStateFailed
	} else {
		r.log.Info().
			Str("slug", result.Slug).
			Int("title_attempts", result.TitleAttempts).
			Int64("duration_ms", result.DurationMs).
			Msg("Run completed")
	}
	s.metrics.ObserveRun(string(result.Trigger), outcome, elapsed)
}

func (s *publishService) pickTopic() string {
	if len(s.cfg.TopicPool) == 0 {
		return ""
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.cfg.TopicPool[s.rand.Intn(len(s.cfg.TopicPool))]
}

func reasonForState(state models.RunState) models.FailureReason {
	switch state {
	case models.RunStateFetching:
		return models.ReasonSourceUnavailable
	case models.RunStatePersisting:
		return models.ReasonRecordPersistFailed
	default:
		return models.ReasonGenerationFailed
	}
}

func containsTitle(list []string, title string) bool {
	for _, t := range list {
		if t == title {
			return true
		}
	}
	return false
}

func joinValidationErrors(errs []validation.ValidationError) error {
	all := make([]error, len(errs))
	for i, e := range errs {
		all[i] = e
	}
	return fmt.Errorf("invalid post: %w", errors.Join(all...))
}
