package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoblog-publisher/internal/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// NewGeminiGenerator creates a text-only generator backed by the Gemini API
func NewGeminiGenerator(ctx context.Context, s Settings, m *metrics.Metrics, log zerolog.Logger) (Generator, error) {
	if s.APIKey == "" {
		return nil, errors.New("gemini api key missing; set GEMINI_API_KEY")
	}
	if s.Model == "" {
		s.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newTextGenerator("gemini", &geminiCompleter{client: client, settings: s}, s, m, log), nil
}

type geminiCompleter struct {
	client   *genai.Client
	settings Settings
}

func (c *geminiCompleter) complete(ctx context.Context, p Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
	}
	if c.settings.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(c.settings.Temperature))
	}
	if c.settings.TopP > 0 {
		config.TopP = genai.Ptr(float32(c.settings.TopP))
	}
	if c.settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.settings.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.settings.Model, genai.Text(p.User), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
