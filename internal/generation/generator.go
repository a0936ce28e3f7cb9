package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autoblog-publisher/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrEmptyOutput is returned when the model produced nothing usable
	ErrEmptyOutput = errors.New("model returned empty output")

	// ErrDuplicateTitle is returned when a candidate title matches an exclusion
	ErrDuplicateTitle = errors.New("model repeated an excluded title")
)

// Generator produces the text of a post
type Generator interface {
	// GenerateTitle returns a cleaned title that is not literally one of exclusions
	GenerateTitle(ctx context.Context, exclusions []string, topicHint string) (string, error)
	// GenerateBody returns a markdown body for title
	GenerateBody(ctx context.Context, title, styleHint string) (string, error)
}

// ImageGenerator is implemented by backends that can produce cover images
type ImageGenerator interface {
	GenerateImagePrompt(ctx context.Context, title string) (string, error)
	// GenerateImage returns encoded PNG bytes
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// GenerationError wraps a failed or degenerate generation call
type GenerationError struct {
	Op string
	// Output holds the rejected candidate, when there was one
	Output string
	Cause  error
}

func (e *GenerationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("generation %s failed (%q): %v", e.Op, e.Output, e.Cause)
	}
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Settings configures a generation backend
type Settings struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	ImageModel  string
	Temperature float64
	MaxTokens   int
	TopP        float64
	// RatePerMinute caps outbound calls; zero disables limiting
	RatePerMinute int
	CallTimeout   time.Duration
}

// completer is the provider specific part of a text backend
type completer interface {
	complete(ctx context.Context, p Prompt) (string, error)
}

// textGenerator implements Generator on top of a completer, adding rate
// limiting, per-call timeouts, metrics and output cleanup
type textGenerator struct {
	target  string
	backend completer
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func newTextGenerator(target string, backend completer, s Settings, m *metrics.Metrics, log zerolog.Logger) *textGenerator {
	return &textGenerator{
		target:  target,
		backend: backend,
		limiter: newLimiter(s.RatePerMinute),
		timeout: s.CallTimeout,
		metrics: m,
		log:     log.With().Str("component", "generator").Str("provider", target).Logger(),
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// GenerateTitle asks for a title that avoids exclusions
func (g *textGenerator) GenerateTitle(ctx context.Context, exclusions []string, topicHint string) (string, error) {
	raw, err := g.call(ctx, "title", TitlePrompt(exclusions, topicHint))
	if err != nil {
		return "", err
	}
	title, err := CleanTitle(raw)
	if err != nil {
		return "", &GenerationError{Op: "title", Cause: err}
	}
	if containsExact(exclusions, title) {
		return "", &GenerationError{Op: "title", Output: title, Cause: ErrDuplicateTitle}
	}
	return title, nil
}

// GenerateBody writes the post body
func (g *textGenerator) GenerateBody(ctx context.Context, title, styleHint string) (string, error) {
	raw, err := g.call(ctx, "body", BodyPrompt(title, styleHint))
	if err != nil {
		return "", err
	}
	body, err := CleanBody(raw)
	if err != nil {
		return "", &GenerationError{Op: "body", Cause: err}
	}
	return body, nil
}

func (g *textGenerator) call(ctx context.Context, op string, p Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", &GenerationError{Op: op, Cause: err}
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := g.backend.complete(callCtx, p)
	g.metrics.ObserveCall(g.target, op, err, time.Since(start))
	if err != nil {
		g.log.Warn().Err(err).Str("op", op).Dur("elapsed", time.Since(start)).Msg("Generation call failed")
		return "", &GenerationError{Op: op, Cause: err}
	}

	g.log.Debug().Str("op", op).Dur("elapsed", time.Since(start)).Int("chars", len(out)).Msg("Generation call completed")
	return out, nil
}

func (g *textGenerator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
