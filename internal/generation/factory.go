package generation

import (
	"context"
	"fmt"

	"github.com/autoblog-publisher/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// New builds the backend named by s.Provider
func New(ctx context.Context, s Settings, m *metrics.Metrics, log zerolog.Logger) (Generator, error) {
	switch s.Provider {
	case ProviderOpenAI:
		return NewOpenAIGenerator(s, m, log)
	case ProviderGemini:
		return NewGeminiGenerator(ctx, s, m, log)
	case ProviderMock:
		return NewStubGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", s.Provider)
	}
}
