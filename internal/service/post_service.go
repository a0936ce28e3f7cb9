package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/autoblog-publisher/internal/validation"
	"github.com/rs/zerolog"
)

// postService is the concrete implementation of PostService
type postService struct {
	store    repository.PostStore
	postsDir string
	retrier  *retry.Retrier
	log      zerolog.Logger
}

func newPostService(store repository.PostStore, postsDir string, retrier *retry.Retrier, log zerolog.Logger) *postService {
	return &postService{
		store:    store,
		postsDir: postsDir,
		retrier:  retrier,
		log:      log.With().Str("service", "post").Logger(),
	}
}

// NewPostService creates a PostService reading from store
func NewPostService(store repository.PostStore, postsDir string, policy retry.Policy, log zerolog.Logger) PostService {
	return newPostService(store, postsDir, retry.New(policy, repository.IsTransient, log), log)
}

// List returns every stored post, newest first
func (s *postService) List(ctx context.Context) ([]models.PostListItem, error) {
	var refs []models.RecordRef
	err := s.retrier.Do(ctx, "list_all", func(ctx context.Context) error {
		var err error
		refs, err = s.store.ListAll(ctx, s.postsDir)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	items := make([]models.PostListItem, 0, len(refs))
	for _, ref := range refs {
		post, err := s.read(ctx, ref)
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("path", ref.Path).Msg("Listed post vanished, skipping")
			continue
		}
		if errors.Is(err, repository.ErrInvalidRecord) {
			s.log.Warn().Err(err).Str("path", ref.Path).Msg("Unreadable post, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ref.Path, err)
		}
		items = append(items, post.ListItem())
	}
	return items, nil
}

// Get returns the post stored under slug
func (s *postService) Get(ctx context.Context, slug string) (*models.Post, error) {
	if !validation.IsValidSlug(slug) {
		return nil, ErrPostNotFound
	}
	post, err := s.read(ctx, models.RecordRef{Path: repository.RecordPath(s.postsDir, slug)})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", slug, err)
	}
	return post, nil
}

func (s *postService) read(ctx context.Context, ref models.RecordRef) (*models.Post, error) {
	var post *models.Post
	err := s.retrier.Do(ctx, "get_record", func(ctx context.Context) error {
		var err error
		post, err = s.store.GetRecord(ctx, ref)
		return err
	})
	return post, err
}
