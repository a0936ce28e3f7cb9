package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/autoblog-publisher/internal/models"
	"github.com/google/go-github/v66/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// GitHubConfig addresses a repository used as the content store
type GitHubConfig struct {
	Token          string
	Owner          string
	Repo           string
	Branch         string
	CommitterName  string
	CommitterEmail string
	CallTimeout    time.Duration
	CacheSize      int
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests)
	BaseURL string
}

// githubRepo stores posts as JSON files through the GitHub contents API.
// Directory listings come back in name order, so ListRecent reads each record
// and sorts on created_at before truncating.
type githubRepo struct {
	client *github.Client
	cfg    GitHubConfig
	// decoded records keyed by blob SHA; blobs are content addressed so
	// entries never go stale
	cache *lru.Cache[string, *models.Post]
	log   zerolog.Logger
}

// maxConcurrentReads bounds parallel record reads during a listing
const maxConcurrentReads = 4

// NewGitHubRepo creates a PostStore backed by a GitHub repository
func NewGitHubRepo(cfg GitHubConfig, httpClient *http.Client, log zerolog.Logger) (PostStore, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github store requires owner and repo")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	client := github.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	client.UserAgent = "autoBlog v1.0.0"
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}

	cache, err := lru.New[string, *models.Post](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	return &githubRepo{
		client: client,
		cfg:    cfg,
		cache:  cache,
		log:    log.With().Str("component", "github_store").Str("repo", cfg.Owner+"/"+cfg.Repo).Logger(),
	}, nil
}

// ListRecent returns the limit newest records under dir, oldest first
func (r *githubRepo) ListRecent(ctx context.Context, dir string, limit int) ([]models.RecordRef, error) {
	refs, err := r.listSorted(ctx, dir)
	if err != nil {
		return nil, err
	}
	return tail(refs, limit), nil
}

// ListAll returns every record under dir, newest first
func (r *githubRepo) ListAll(ctx context.Context, dir string) ([]models.RecordRef, error) {
	refs, err := r.listSorted(ctx, dir)
	if err != nil {
		return nil, err
	}
	return newestFirst(refs), nil
}

func (r *githubRepo) listSorted(ctx context.Context, dir string) ([]models.RecordRef, error) {
	callCtx, cancel := callContext(ctx, r.cfg.CallTimeout)
	_, entries, _, err := r.client.Repositories.GetContents(callCtx, r.cfg.Owner, r.cfg.Repo, dir, r.getOptions())
	cancel()
	if err != nil {
		err = r.classify(ctx, "list", err)
		if errors.Is(err, ErrNotFound) {
			// no directory yet means no posts yet
			return []models.RecordRef{}, nil
		}
		return nil, err
	}

	var candidates []*github.RepositoryContent
	for _, e := range entries {
		if e.GetType() == "file" && IsRecordPath(e.GetName()) {
			candidates = append(candidates, e)
		}
	}

	// each record is read to learn its creation time
	results := make([]*models.RecordRef, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, entry := range candidates {
		g.Go(func() error {
			ref := models.RecordRef{Path: entry.GetPath(), Revision: entry.GetSHA()}
			post, err := r.GetRecord(gctx, ref)
			if errors.Is(err, ErrNotFound) {
				r.log.Warn().Str("path", ref.Path).Msg("Record disappeared during listing, skipping")
				return nil
			}
			if errors.Is(err, ErrInvalidRecord) {
				r.log.Warn().Err(err).Str("path", ref.Path).Msg("Unreadable record in listing, skipping")
				return nil
			}
			if err != nil {
				return err
			}
			ref.CreatedAt = post.CreatedAt
			results[i] = &ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]models.RecordRef, 0, len(results))
	for _, ref := range results {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].Path < refs[j].Path
		}
		return refs[i].CreatedAt.Before(refs[j].CreatedAt)
	})
	return refs, nil
}

// GetRecord reads and decodes the record at ref.Path
func (r *githubRepo) GetRecord(ctx context.Context, ref models.RecordRef) (*models.Post, error) {
	if ref.Revision != "" {
		if post, ok := r.cache.Get(ref.Revision); ok {
			return clonePost(post), nil
		}
	}

	callCtx, cancel := callContext(ctx, r.cfg.CallTimeout)
	file, _, _, err := r.client.Repositories.GetContents(callCtx, r.cfg.Owner, r.cfg.Repo, ref.Path, r.getOptions())
	cancel()
	if err != nil {
		return nil, r.classify(ctx, "get", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory: %w", ref.Path, ErrNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", ref.Path, err, ErrInvalidRecord)
	}
	var post models.Post
	if err := json.Unmarshal([]byte(content), &post); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", ref.Path, err, ErrInvalidRecord)
	}
	if post.Slug == "" {
		post.Slug = SlugFromPath(ref.Path)
	}

	r.cache.Add(file.GetSHA(), clonePost(&post))
	return &post, nil
}

// PutRecord commits post as pretty-printed JSON
func (r *githubRepo) PutRecord(ctx context.Context, path string, post *models.Post, expectedRevision string) (string, error) {
	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode post: %w", err)
	}
	verb := "Add"
	if expectedRevision != "" {
		verb = "Update"
	}
	sha, err := r.putFile(ctx, path, data, expectedRevision, fmt.Sprintf("%s blog post %s", verb, post.Slug))
	if err != nil {
		return "", err
	}
	r.cache.Add(sha, clonePost(post))
	return sha, nil
}

// PutBinary commits an asset
func (r *githubRepo) PutBinary(ctx context.Context, path string, data []byte, expectedRevision string) (string, error) {
	return r.putFile(ctx, path, data, expectedRevision, "Add image "+path)
}

// Exists returns the blob SHA stored at path
func (r *githubRepo) Exists(ctx context.Context, path string) (string, bool, error) {
	callCtx, cancel := callContext(ctx, r.cfg.CallTimeout)
	file, _, _, err := r.client.Repositories.GetContents(callCtx, r.cfg.Owner, r.cfg.Repo, path, r.getOptions())
	cancel()
	if err != nil {
		err = r.classify(ctx, "exists", err)
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if file == nil {
		return "", false, nil
	}
	return file.GetSHA(), true, nil
}

// DeleteBinary removes an asset committed at blob SHA revision
func (r *githubRepo) DeleteBinary(ctx context.Context, path, revision string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String("Remove image " + path),
		SHA:     github.String(revision),
		Branch:  r.branch(),
	}
	if r.cfg.CommitterName != "" && r.cfg.CommitterEmail != "" {
		opts.Committer = &github.CommitAuthor{
			Name:  github.String(r.cfg.CommitterName),
			Email: github.String(r.cfg.CommitterEmail),
		}
	}

	callCtx, cancel := callContext(ctx, r.cfg.CallTimeout)
	defer cancel()

	_, _, err := r.client.Repositories.DeleteFile(callCtx, r.cfg.Owner, r.cfg.Repo, path, opts)
	if err != nil {
		err = r.classify(ctx, "delete", err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	r.log.Info().Str("path", path).Str("sha", revision).Msg("File removed")
	return nil
}

func (r *githubRepo) putFile(ctx context.Context, path string, data []byte, expectedRevision, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: data,
		Branch:  r.branch(),
	}
	if r.cfg.CommitterName != "" && r.cfg.CommitterEmail != "" {
		opts.Committer = &github.CommitAuthor{
			Name:  github.String(r.cfg.CommitterName),
			Email: github.String(r.cfg.CommitterEmail),
		}
	}

	callCtx, cancel := callContext(ctx, r.cfg.CallTimeout)
	defer cancel()

	var (
		resp *github.RepositoryContentResponse
		err  error
	)
	if expectedRevision == "" {
		resp, _, err = r.client.Repositories.CreateFile(callCtx, r.cfg.Owner, r.cfg.Repo, path, opts)
	} else {
		opts.SHA = github.String(expectedRevision)
		resp, _, err = r.client.Repositories.UpdateFile(callCtx, r.cfg.Owner, r.cfg.Repo, path, opts)
	}
	if err != nil {
		return "", r.classify(ctx, "put", err)
	}
	if resp == nil || resp.Content == nil {
		return "", fmt.Errorf("put %s: empty response from github", path)
	}

	r.log.Info().Str("path", path).Str("sha", resp.Content.GetSHA()).Msg("File committed")
	return resp.Content.GetSHA(), nil
}

func (r *githubRepo) getOptions() *github.RepositoryContentGetOptions {
	if r.cfg.Branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: r.cfg.Branch}
}

func (r *githubRepo) branch() *string {
	if r.cfg.Branch == "" {
		return nil
	}
	return github.String(r.cfg.Branch)
}

// classify maps go-github errors onto the store error contract. ctx is the
// caller's context, used to tell a per-call timeout from caller cancellation.
func (r *githubRepo) classify(ctx context.Context, op string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &TransientError{Op: op, StatusCode: http.StatusForbidden, Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &TransientError{Op: op, StatusCode: http.StatusForbidden, Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
			// 409: stale sha on update; 422: create without sha over an existing file
			return fmt.Errorf("%s: %v: %w", op, err, ErrConflict)
		case status == http.StatusTooManyRequests, status >= 500:
			return &TransientError{Op: op, StatusCode: status, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &TransientError{Op: op, Err: err}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
