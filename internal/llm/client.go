// Package llm wraps the language-model collaborator behind a single
// Generate call. The pipeline never talks to a provider SDK directly and
// never shares a process-global client: one Client is built from config and
// passed down explicitly.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Provider selects the langchaingo backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogleAI  Provider = "googleai"
	ProviderOllama    Provider = "ollama"
)

// Config carries everything needed to build one client.
type Config struct {
	Provider    Provider
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// RequestsPerMinute throttles section calls so N independent requests
	// per commit don't burst past provider quotas. Zero disables it.
	RequestsPerMinute int
}

// Client issues one prompt, gets one text response. Each call carries its
// own timeout; a failed or timed-out call affects that call only.
type Client struct {
	llm     llms.Model
	model   string
	timeout time.Duration
	opts    []llms.CallOption
	limiter *rate.Limiter
}

// New builds a client for the configured provider.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		model, err = anthropic.New(opts...)
	case ProviderGoogleAI:
		gopts := []googleai.Option{googleai.WithAPIKey(cfg.APIKey)}
		if cfg.Model != "" {
			gopts = append(gopts, googleai.WithDefaultModel(cfg.Model))
		}
		model, err = googleai.New(ctx, gopts...)
	case ProviderOllama:
		opts := []ollama.Option{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	c := &Client{
		llm:     model,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = 60 * time.Second
	}
	if cfg.Temperature > 0 {
		c.opts = append(c.opts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		c.opts = append(c.opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	log.Debug().
		Str("provider", string(cfg.Provider)).
		Str("model", cfg.Model).
		Dur("timeout", c.timeout).
		Msg("model client ready")
	return c, nil
}

// Generate sends one prompt and returns the raw text response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := llms.GenerateFromSinglePrompt(callCtx, c.llm, prompt, c.opts...)
	if err != nil {
		log.Warn().Err(err).Str("model", c.model).Dur("elapsed", time.Since(start)).Msg("model call failed")
		return "", fmt.Errorf("model call: %w", err)
	}

	log.Debug().
		Str("model", c.model).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(response)).
		Dur("elapsed", time.Since(start)).
		Msg("model call complete")
	return response, nil
}
