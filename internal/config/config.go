package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreBackendGitHub   = "github"
	StoreBackendPostgres = "postgres"
)

// Generation providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// Body formats
const (
	BodyFormatMarkdown = "markdown"
	BodyFormatHTML     = "html"
)

// Excerpt strategies
const (
	ExcerptPlaceholder = "placeholder"
	ExcerptDerived     = "derived"
)

// Image failure policies
const (
	ImageFailurePolicyFail    = "fail"
	ImageFailurePolicyDegrade = "degrade"
)

// RunWaitSlack is how long past RUN_TIMEOUT an HTTP trigger waits for its run
const RunWaitSlack = 5 * time.Second

// writeTimeoutMargin leaves room to write a response after the run wait ends
const writeTimeoutMargin = 30 * time.Second

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (postgres store backend)
	Database DatabaseConfig

	// Content store configuration
	Store StoreConfig

	// Generation API configuration
	Generation GenerationConfig

	// Publication pipeline configuration
	Publish PublishConfig

	// Retry policy applied at the client boundary
	Retry RetryConfig

	// Scheduled trigger configuration
	Cron CronConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// StoreConfig holds content store settings
type StoreConfig struct {
	Backend        string
	GitHubToken    string
	Owner          string
	Repo           string
	Branch         string
	CommitterName  string
	CommitterEmail string
	PostsDir       string
	ImagesDir      string
	CallTimeout    time.Duration
	CacheSize      int
}

// GenerationConfig holds generation API settings
type GenerationConfig struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	ImageModel    string
	GeminiKey     string
	GeminiModel   string
	Temperature   float64
	MaxTokens     int
	TopP          float64
	RatePerMinute int
	CallTimeout   time.Duration
}

// PublishConfig parameterises the publication orchestrator
type PublishConfig struct {
	WindowSize         int
	TitleAttempts      int
	ImageEnabled       bool
	ImageFailurePolicy string
	BodyFormat         string
	ExcerptStrategy    string
	ExcerptPlaceholder string
	TopicPool          []string
	StyleHint          string
	RunTimeout         time.Duration
}

// RetryConfig holds the bounded exponential backoff settings
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// CronConfig holds scheduled trigger settings
type CronConfig struct {
	Enabled    bool
	Expression string
	Timezone   string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables.
// A .env file in the working directory, when present, is loaded first and never
// overrides variables already set in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	runTimeout := getDurationEnv("RUN_TIMEOUT", 5*time.Minute)

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", runTimeout+RunWaitSlack+writeTimeoutMargin),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "autoblog"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Store: StoreConfig{
			Backend:        getEnv("STORE_BACKEND", StoreBackendGitHub),
			GitHubToken:    getEnv("GITHUB_TOKEN", ""),
			Owner:          getEnv("GITHUB_OWNER", ""),
			Repo:           getEnv("GITHUB_REPO", ""),
			Branch:         getEnv("GITHUB_BRANCH", "main"),
			CommitterName:  getEnv("GITHUB_COMMITTER_NAME", "autoBlog"),
			CommitterEmail: getEnv("GITHUB_COMMITTER_EMAIL", "autoblog@users.noreply.github.com"),
			PostsDir:       getEnv("POSTS_DIR", "posts"),
			ImagesDir:      getEnv("IMAGES_DIR", "images"),
			CallTimeout:    getDurationEnv("STORE_CALL_TIMEOUT", 15*time.Second),
			CacheSize:      getIntEnv("STORE_CACHE_SIZE", 256),
		},
		Generation: GenerationConfig{
			Provider:      getEnv("GENERATION_PROVIDER", ProviderOpenAI),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			ImageModel:    getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:   getFloatEnv("GENERATION_TEMPERATURE", 0.8),
			MaxTokens:     getIntEnv("GENERATION_MAX_TOKENS", 1024),
			TopP:          getFloatEnv("GENERATION_TOP_P", 1.0),
			RatePerMinute: getIntEnv("GENERATION_RATE_PER_MINUTE", 30),
			CallTimeout:   getDurationEnv("GENERATION_CALL_TIMEOUT", 90*time.Second),
		},
		Publish: PublishConfig{
			WindowSize:         getIntEnv("WINDOW_SIZE", 20),
			TitleAttempts:      getIntEnv("TITLE_ATTEMPTS", 3),
			ImageEnabled:       getBoolEnv("IMAGE_ENABLED", false),
			ImageFailurePolicy: getEnv("IMAGE_FAILURE_POLICY", ImageFailurePolicyDegrade),
			BodyFormat:         getEnv("BODY_FORMAT", BodyFormatMarkdown),
			ExcerptStrategy:    getEnv("EXCERPT_STRATEGY", ExcerptDerived),
			ExcerptPlaceholder: getEnv("EXCERPT_PLACEHOLDER", "Read the full post."),
			TopicPool:          getListEnv("TOPIC_POOL"),
			StyleHint:          getEnv("STYLE_HINT", ""),
			RunTimeout:         runTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts: getIntEnv("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getDurationEnv("RETRY_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:    getDurationEnv("RETRY_MAX_DELAY", 10*time.Second),
		},
		Cron: CronConfig{
			Enabled:    getBoolEnv("CRON_ENABLED", true),
			Expression: getEnv("CRON_EXPRESSION", "0 0 * * *"),
			Timezone:   getEnv("CRON_TIMEZONE", "UTC"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendGitHub:
		if c.Store.GitHubToken == "" {
			return fmt.Errorf("GITHUB_TOKEN is required for the github store")
		}
		if c.Store.Owner == "" || c.Store.Repo == "" {
			return fmt.Errorf("GITHUB_OWNER and GITHUB_REPO are required for the github store")
		}
	case StoreBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: github, postgres")
	}
	if c.Store.PostsDir == "" {
		return fmt.Errorf("POSTS_DIR is required")
	}

	switch c.Generation.Provider {
	case ProviderOpenAI:
		if c.Generation.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Generation.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		if c.Publish.ImageEnabled {
			return fmt.Errorf("IMAGE_ENABLED requires the openai provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("GENERATION_PROVIDER must be one of: openai, gemini, mock")
	}

	if c.Publish.WindowSize < 0 {
		return fmt.Errorf("WINDOW_SIZE must not be negative")
	}
	if c.Publish.TitleAttempts < 1 {
		return fmt.Errorf("TITLE_ATTEMPTS must be at least 1")
	}
	if c.Publish.BodyFormat != BodyFormatMarkdown && c.Publish.BodyFormat != BodyFormatHTML {
		return fmt.Errorf("BODY_FORMAT must be one of: markdown, html")
	}
	if c.Publish.ExcerptStrategy != ExcerptPlaceholder && c.Publish.ExcerptStrategy != ExcerptDerived {
		return fmt.Errorf("EXCERPT_STRATEGY must be one of: placeholder, derived")
	}
	if c.Publish.ImageFailurePolicy != ImageFailurePolicyFail && c.Publish.ImageFailurePolicy != ImageFailurePolicyDegrade {
		return fmt.Errorf("IMAGE_FAILURE_POLICY must be one of: fail, degrade")
	}
	// a synchronous /generate must be able to write its failure before the deadline
	if c.Server.WriteTimeout > 0 && c.Publish.RunTimeout > 0 &&
		c.Server.WriteTimeout <= c.Publish.RunTimeout+RunWaitSlack {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT (%s) must exceed RUN_TIMEOUT plus %s", c.Server.WriteTimeout, RunWaitSlack)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Cron.Enabled && c.Cron.Expression == "" {
		return fmt.Errorf("CRON_EXPRESSION is required when CRON_ENABLED is set")
	}
	if _, err := time.LoadLocation(c.Cron.Timezone); err != nil {
		return fmt.Errorf("CRON_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
