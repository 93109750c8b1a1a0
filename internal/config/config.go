package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"linkbrief/internal/backend"
	"linkbrief/internal/domain"
	"linkbrief/internal/extractor"
)

type Config struct {
	Token                string            `env:"TOKEN"`
	AllowedChats         []int64           `env:"ALLOWED_CHATS"`
	MaxConcurrentUpdates int               `env:"MAX_CONCURRENT_UPDATES" envDefault:"8"`
	LogLevel             string            `env:"LOG_LEVEL"              envDefault:"info"`
	HTTPAddr             string            `env:"HTTP_ADDR"              envDefault:":8080"`
	RequestTimeout       time.Duration     `env:"REQUEST_TIMEOUT"        envDefault:"3m"`
	ExtractTimeout       time.Duration     `env:"EXTRACT_TIMEOUT"        envDefault:"30s"`
	AugmentTimeout       time.Duration     `env:"AUGMENT_TIMEOUT"        envDefault:"15s"`
	AugmentThreshold     int               `env:"AUGMENT_THRESHOLD"      envDefault:"3000"`
	AugmentAlways        []domain.Category `env:"AUGMENT_ALWAYS"         envDefault:"social_post_a,social_post_b"`
	MaxBodyBytes         int64             `env:"MAX_BODY_BYTES"         envDefault:"10485760"`
	MinWebpageChars      int               `env:"MIN_WEBPAGE_CHARS"      envDefault:"200"`
	MaxInputTokens       int               `env:"MAX_INPUT_TOKENS"       envDefault:"12000"`
	BackendsFile         string            `env:"BACKENDS_FILE"`
	OpenAIAPIKey         string            `env:"OPENAI_API_KEY"`
	AnthropicAPIKey      string            `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey         string            `env:"GEMINI_API_KEY"`
	OllamaHost           string            `env:"OLLAMA_HOST"`
	TavilyAPIKey         string            `env:"TAVILY_API_KEY"`
	TwitterAPIKey        string            `env:"TWITTERAPI_KEY"`
	FirecrawlAPIKey      string            `env:"FIRECRAWL_API_KEY"`
	TranscriptAPIURL     string            `env:"YOUTUBE_TRANSCRIPT_API_URL"`
	TranscriptAPIKey     string            `env:"YOUTUBE_TRANSCRIPT_API_KEY"`
}

var ErrInvalidConfig = errors.New("invalid config")

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.MaxConcurrentUpdates < 1 {
		errs = append(errs, errors.New("MAX_CONCURRENT_UPDATES must be at least 1"))
	}

	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT": c.RequestTimeout,
		"EXTRACT_TIMEOUT": c.ExtractTimeout,
		"AUGMENT_TIMEOUT": c.AugmentTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.AugmentThreshold < 0 {
		errs = append(errs, errors.New("AUGMENT_THRESHOLD must not be negative"))
	}

	for _, category := range c.AugmentAlways {
		if category == domain.CategoryUnsupported {
			errs = append(errs, errors.New("AUGMENT_ALWAYS must not contain unsupported"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

func (c Config) Credentials() backend.Credentials {
	return backend.Credentials{
		OpenAIAPIKey:    c.OpenAIAPIKey,
		AnthropicAPIKey: c.AnthropicAPIKey,
		GeminiAPIKey:    c.GeminiAPIKey,
		OllamaHost:      c.OllamaHost,
	}
}

func (c Config) ExtractorOptions() extractor.Options {
	return extractor.Options{
		MaxBodyBytes:     c.MaxBodyBytes,
		MinWebpageChars:  c.MinWebpageChars,
		FirecrawlAPIKey:  c.FirecrawlAPIKey,
		TwitterAPIKey:    c.TwitterAPIKey,
		TranscriptAPIURL: c.TranscriptAPIURL,
		TranscriptAPIKey: c.TranscriptAPIKey,
	}
}
