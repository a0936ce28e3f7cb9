package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/generation"
	"github.com/autoblog-publisher/internal/mocks"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/retry"
	"github.com/autoblog-publisher/internal/service"
	"github.com/autoblog-publisher/internal/validation"
	"github.com/rs/zerolog"
)

// Helper function
func seedStore(n int) *mocks.MockPostStore {
	store := mocks.NewMockPostStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("Seeded Post %04d", i)
		store.Seed("posts", &models.Post{
			Slug:      validation.DeriveSlug(title),
			Title:     title,
			Body:      "Body",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return store
}

// BenchmarkListRecent benchmarks the recent window lookup over a large store
func BenchmarkListRecent(b *testing.B) {
	store := seedStore(1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := store.ListRecent(context.Background(), "posts", 20); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPublishRun benchmarks a full run against in-memory backends
func BenchmarkPublishRun(b *testing.B) {
	store := seedStore(100)
	gen := mocks.NewMockGenerator()

	svc := service.NewPublishService(service.PublishParams{
		Store:     store,
		Generator: gen,
		Publish: config.PublishConfig{
			WindowSize:         20,
			TitleAttempts:      3,
			ImageFailurePolicy: config.ImageFailurePolicyDegrade,
			BodyFormat:         config.BodyFormatMarkdown,
			ExcerptStrategy:    config.ExcerptDerived,
			RunTimeout:         time.Minute,
		},
		PostsDir:  "posts",
		ImagesDir: "images",
		Retry:     retry.DefaultPolicy(),
	}, zerolog.Nop())
	defer svc.Shutdown(context.Background())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Run(context.Background(), models.RunRequest{Trigger: models.TriggerHTTP}); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "runs/sec")
}

// BenchmarkDeriveExcerpt benchmarks markdown rendering and sanitising
func BenchmarkDeriveExcerpt(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("# Heading\n\n")
	for i := 0; i < 50; i++ {
		sb.WriteString("A paragraph with **bold** text, a [link](https://example.com) and `code`.\n\n")
	}
	md := sb.String()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		generation.DeriveExcerpt(md, generation.DefaultExcerptLength)
	}
}

// BenchmarkValidation benchmarks slug derivation and record validation
func BenchmarkValidation(b *testing.B) {
	validator := validation.NewValidator()
	post := &models.Post{
		Title:     "Exploring Moral Luck: Why Outcomes Shape Our Judgements",
		Body:      "Body",
		CreatedAt: time.Now(),
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		post.Slug = validation.DeriveSlug(post.Title)
		validator.ValidatePost(post, post.Slug)
	}
}
