package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/storyarc/internal/genres"
	"github.com/jwebster45206/storyarc/internal/services"
	"github.com/jwebster45206/storyarc/internal/storage"
	"github.com/jwebster45206/storyarc/pkg/arcs"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// Storage
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	StoryTTL       time.Duration `env:"STORY_TTL" envDefault:"0s"`
	MongoURI       string        `env:"MONGO_URI"`
	MongoDatabase  string        `env:"MONGO_DATABASE" envDefault:"storyarc"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"./data/storyarc.db"`

	// Text generation
	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"openai"`
	ModelName       string  `env:"MODEL_NAME" envDefault:"gpt-3.5-turbo"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string  `env:"OPENAI_BASE_URL"`
	VeniceAPIKey    string  `env:"VENICE_API_KEY"`
	AnthropicAPIKey string  `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string  `env:"GEMINI_API_KEY"`
	MaxTokens       int     `env:"MAX_TOKENS" envDefault:"1200"`
	Temperature     float64 `env:"TEMPERATURE" envDefault:"0.8"`

	// Retry ladder
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"1s"`

	// Arc planning
	TotalArcs     int    `env:"TOTAL_ARCS" envDefault:"5"`
	TotalChapters int    `env:"TOTAL_CHAPTERS" envDefault:"35"`
	OpenEndedArcs bool   `env:"OPEN_ENDED_ARCS" envDefault:"true"`
	ThemesDir     string `env:"THEMES_DIR" envDefault:"./data/themes"`

	LockTTL     time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	CORSOrigins []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	OTelEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
	WorkerID     string `env:"WORKER_ID"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	providers = []string{services.ProviderOpenAI, services.ProviderVenice, services.ProviderAnthropic, services.ProviderGemini, services.ProviderMock}
	backends  = []string{storage.BackendRedis, storage.BackendMongo, storage.BackendSQLite, storage.BackendMemory}
)

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(providers, c.LLMProvider) {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be one of %v, got %q", providers, c.LLMProvider))
	}
	if !slices.Contains(backends, c.StorageBackend) {
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of %v, got %q", backends, c.StorageBackend))
	}
	if c.StorageBackend == storage.BackendMongo && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required for the mongo backend"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts))
	}
	if c.TotalArcs < 1 || c.TotalChapters < c.TotalArcs {
		errs = append(errs, fmt.Errorf("TOTAL_CHAPTERS (%d) must be at least TOTAL_ARCS (%d) and both positive", c.TotalChapters, c.TotalArcs))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether logs should be JSON.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// StorageOptions returns the storage backend settings.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.StorageBackend,
		RedisURL:      c.RedisURL,
		TTL:           c.StoryTTL,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
		SQLitePath:    c.SQLitePath,
	}
}

// ProviderOptions returns the text generator settings.
func (c *Config) ProviderOptions() services.ProviderOptions {
	return services.ProviderOptions{
		Provider:        c.LLMProvider,
		ModelName:       c.ModelName,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIBaseURL:   c.OpenAIBaseURL,
		VeniceAPIKey:    c.VeniceAPIKey,
		AnthropicAPIKey: c.AnthropicAPIKey,
		GeminiAPIKey:    c.GeminiAPIKey,
	}
}

// LadderConfig returns the retry ladder settings.
func (c *Config) LadderConfig() genres.LadderConfig {
	cfg := genres.DefaultLadderConfig()
	cfg.MaxAttempts = c.MaxAttempts
	cfg.RetryDelay = c.RetryDelay
	cfg.MaxTokens = c.MaxTokens
	cfg.Temperature = c.Temperature
	return cfg
}

// ArcConfig returns the planning constants.
func (c *Config) ArcConfig() arcs.Config {
	return arcs.Config{
		TotalArcs:     c.TotalArcs,
		TotalChapters: c.TotalChapters,
		OpenEnded:     c.OpenEndedArcs,
	}
}
