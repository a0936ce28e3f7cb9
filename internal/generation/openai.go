package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/autoblog-publisher/internal/metrics"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

const imageTarget = "openai_image"

// OpenAIGenerator implements Generator and ImageGenerator with the OpenAI
// chat completions and image generation APIs
type OpenAIGenerator struct {
	*textGenerator
	client     openai.Client
	imageModel string
}

var (
	_ Generator      = (*OpenAIGenerator)(nil)
	_ ImageGenerator = (*OpenAIGenerator)(nil)
)

// NewOpenAIGenerator creates an OpenAI backed generator
func NewOpenAIGenerator(s Settings, m *metrics.Metrics, log zerolog.Logger) (*OpenAIGenerator, error) {
	if s.APIKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	if s.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey), option.WithMaxRetries(0)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := openai.NewClient(opts...)

	g := &OpenAIGenerator{client: client, imageModel: s.ImageModel}
	g.textGenerator = newTextGenerator("openai", &openAICompleter{client: client, settings: s}, s, m, log)
	return g, nil
}

// GenerateImagePrompt asks the chat model to describe a cover image for title
func (g *OpenAIGenerator) GenerateImagePrompt(ctx context.Context, title string) (string, error) {
	raw, err := g.call(ctx, "image_prompt", ImageDescriptionPrompt(title))
	if err != nil {
		return "", err
	}
	prompt, err := CleanBody(raw)
	if err != nil {
		return "", &GenerationError{Op: "image_prompt", Cause: err}
	}
	return prompt, nil
}

// GenerateImage renders prompt to a PNG
func (g *OpenAIGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &GenerationError{Op: "image", Cause: err}
	}
	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}
	if g.imageModel != "" {
		params.Model = openai.ImageModel(g.imageModel)
	}

	start := time.Now()
	resp, err := g.client.Images.Generate(callCtx, params)
	g.metrics.ObserveCall(imageTarget, "generate", err, time.Since(start))
	if err != nil {
		return nil, &GenerationError{Op: "image", Cause: err}
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &GenerationError{Op: "image", Cause: ErrEmptyOutput}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &GenerationError{Op: "image", Cause: fmt.Errorf("invalid image payload: %w", err)}
	}
	g.log.Debug().Int("bytes", len(data)).Dur("elapsed", time.Since(start)).Msg("Image generated")
	return data, nil
}

type openAICompleter struct {
	client   openai.Client
	settings Settings
}

func (c *openAICompleter) complete(ctx context.Context, p Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.settings.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	}
	if c.settings.Temperature > 0 {
		params.Temperature = openai.Float(c.settings.Temperature)
	}
	if c.settings.TopP > 0 {
		params.TopP = openai.Float(c.settings.TopP)
	}
	if c.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.settings.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
