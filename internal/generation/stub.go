package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
)

// placeholderPNG is a 1x1 transparent PNG
const placeholderPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var mockSubjects = []string{
	"Moral Luck", "The Trolley Problem", "Stoic Mornings", "Slow Reading",
	"Kant on Duty", "Virtue at Work", "Attention as Ethics", "Small Habits",
}

// StubGenerator produces deterministic content without calling any API, for
// local runs with GENERATION_PROVIDER=mock
type StubGenerator struct {
	mu sync.Mutex
	n  int
}

var (
	_ Generator      = (*StubGenerator)(nil)
	_ ImageGenerator = (*StubGenerator)(nil)
)

func NewStubGenerator() *StubGenerator {
	return &StubGenerator{}
}

func (m *StubGenerator) GenerateTitle(ctx context.Context, exclusions []string, topicHint string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < len(mockSubjects)+len(exclusions)+1; i++ {
		m.n++
		subject := mockSubjects[m.n%len(mockSubjects)]
		if topicHint != "" {
			subject = topicHint
		}
		title := fmt.Sprintf("Notes on %s, Part %d", subject, m.n)
		if !containsExact(exclusions, title) {
			return title, nil
		}
	}
	return "", &GenerationError{Op: "title", Cause: ErrDuplicateTitle}
}

func (m *StubGenerator) GenerateBody(ctx context.Context, title, styleHint string) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("This is a placeholder post about %s, written without a model.\n\n", strings.ToLower(title)))
	sb.WriteString("## Background\n\n")
	sb.WriteString("Mock content lets the pipeline run end to end in development.\n")
	if styleHint != "" {
		sb.WriteString("\nStyle: " + styleHint + "\n")
	}
	return sb.String(), nil
}

func (m *StubGenerator) GenerateImagePrompt(ctx context.Context, title string) (string, error) {
	return "A simple cover illustration for " + title, nil
}

func (m *StubGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(placeholderPNG)
}
