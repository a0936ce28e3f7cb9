package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/autoblog-publisher/internal/mocks"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/repository"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/autoblog-publisher/internal/service"
	"github.com/rs/zerolog"
)

func newPostService(store repository.PostStore) service.PostService {
	return service.NewPostService(store, "posts", retry.Policy{MaxAttempts: 1}, zerolog.Nop())
}

func TestPostService_ListNewestFirst(t *testing.T) {
	store := mocks.NewMockPostStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.Seed("posts", &models.Post{
			Slug:      fmt.Sprintf("post-%d", i),
			Title:     fmt.Sprintf("Post %d", i),
			Excerpt:   "excerpt",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	items, err := newPostService(store).List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Slug != "post-2" || items[2].Slug != "post-0" {
		t.Errorf("Expected newest first, got %s ... %s", items[0].Slug, items[2].Slug)
	}
}

func TestPostService_ListEmpty(t *testing.T) {
	items, err := newPostService(mocks.NewMockPostStore()).List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", items)
	}
}

func TestPostService_Get(t *testing.T) {
	store := mocks.NewMockPostStore()
	store.Seed("posts", &models.Post{Slug: "kant-on-duty", Title: "Kant on Duty", CreatedAt: time.Now()})
	svc := newPostService(store)

	post, err := svc.Get(context.Background(), "kant-on-duty")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if post.Title != "Kant on Duty" {
		t.Errorf("Expected Kant on Duty, got %s", post.Title)
	}

	for _, slug := range []string{"missing", "Bad Slug", "../secrets"} {
		if _, err := svc.Get(context.Background(), slug); !errors.Is(err, service.ErrPostNotFound) {
			t.Errorf("Get(%q): expected ErrPostNotFound, got %v", slug, err)
		}
	}
}

func TestPostService_GetStoreError(t *testing.T) {
	store := mocks.NewMockPostStore()
	store.GetErrors["posts/broken.json"] = errors.New("boom")

	_, err := newPostService(store).Get(context.Background(), "broken")
	if err == nil || errors.Is(err, service.ErrPostNotFound) {
		t.Errorf("Expected a store error, got %v", err)
	}
}

func TestPostService_ListSkipsUnreadablePost(t *testing.T) {
	store := mocks.NewMockPostStore()
	store.Seed("posts", &models.Post{Slug: "fine", Title: "Fine", CreatedAt: time.Now()})
	store.Seed("posts", &models.Post{Slug: "garbled", Title: "Garbled", CreatedAt: time.Now()})
	store.GetErrors["posts/garbled.json"] = fmt.Errorf("parse: %w", repository.ErrInvalidRecord)

	items, err := newPostService(store).List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Slug != "fine" {
		t.Errorf("Expected only the readable post, got %v", items)
	}
}
