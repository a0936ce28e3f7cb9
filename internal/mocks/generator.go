package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/autoblog-publisher/internal/generation"
)

// MockGenerator is a scripted Generator and ImageGenerator
type MockGenerator struct {
	mu sync.Mutex

	// Titles are returned in order; once drained, unique titles are made up
	Titles []string
	// TitleErrors are consumed one per call before Titles
	TitleErrors []error
	// TitleHook runs (unlocked) at the start of each title call
	TitleHook func(ctx context.Context)

	Body      string
	BodyErr   error
	BodyHook  func(ctx context.Context)
	BodyCalls int

	ImagePrompt    string
	ImageData      []byte
	ImageErr       error
	ImageCalls     int
	ImagePrompts   []string
	ImageHook      func(ctx context.Context)
	ImagePromptErr error

	// ExclusionsSeen records the exclusion list passed to each title call
	ExclusionsSeen [][]string
	TopicsSeen     []string

	generated int
}

var (
	_ generation.Generator      = (*MockGenerator)(nil)
	_ generation.ImageGenerator = (*MockGenerator)(nil)
)

func NewMockGenerator(titles ...string) *MockGenerator {
	return &MockGenerator{
		Titles:      titles,
		Body:        "An opening paragraph about the topic.\n\n## Section\n\nMore detail.",
		ImagePrompt: "a cover illustration",
		ImageData:   []byte("\x89PNG\r\n\x1a\nmock"),
	}
}

func (m *MockGenerator) GenerateTitle(ctx context.Context, exclusions []string, topicHint string) (string, error) {
	if m.TitleHook != nil {
		m.TitleHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExclusionsSeen = append(m.ExclusionsSeen, append([]string(nil), exclusions...))
	m.TopicsSeen = append(m.TopicsSeen, topicHint)

	if err := ctx.Err(); err != nil {
		return "", &generation.GenerationError{Op: "title", Cause: err}
	}
	if len(m.TitleErrors) > 0 {
		err := m.TitleErrors[0]
		m.TitleErrors = m.TitleErrors[1:]
		if err != nil {
			return "", err
		}
	}
	if len(m.Titles) > 0 {
		title := m.Titles[0]
		m.Titles = m.Titles[1:]
		return title, nil
	}
	m.generated++
	return fmt.Sprintf("Generated Post %d", m.generated), nil
}

func (m *MockGenerator) GenerateBody(ctx context.Context, title, styleHint string) (string, error) {
	if m.BodyHook != nil {
		m.BodyHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BodyCalls++
	if err := ctx.Err(); err != nil {
		return "", &generation.GenerationError{Op: "body", Cause: err}
	}
	if m.BodyErr != nil {
		return "", m.BodyErr
	}
	return m.Body, nil
}

func (m *MockGenerator) GenerateImagePrompt(ctx context.Context, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ImagePromptErr != nil {
		return "", m.ImagePromptErr
	}
	return m.ImagePrompt + " for " + title, nil
}

func (m *MockGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if m.ImageHook != nil {
		m.ImageHook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImageCalls++
	m.ImagePrompts = append(m.ImagePrompts, prompt)
	if m.ImageErr != nil {
		return nil, m.ImageErr
	}
	return append([]byte(nil), m.ImageData...), nil
}

// TitleCalls returns how many title calls were made
func (m *MockGenerator) TitleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ExclusionsSeen)
}

// textOnly hides the image capability of a generator
type textOnly struct {
	generation.Generator
}

// TextOnly returns g without its ImageGenerator methods
func TextOnly(g generation.Generator) generation.Generator {
	return textOnly{Generator: g}
}
