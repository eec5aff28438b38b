package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dshills/csr/internal/config"
)

// GenerateRequest contains the prompts and sampling settings for one call.
type GenerateRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSONMode asks the backend to constrain output to a JSON object where
	// the API supports it.
	JSONMode bool
}

// Usage counts the tokens consumed by one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the text a model produced.
type Completion struct {
	Text  string
	Usage Usage
	Model string
}

// Generator is the model invocation abstraction.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Completion, error)
	Name() string
}

// Options configure a client. Empty fields fall back to provider defaults
// and environment variables.
type Options struct {
	Model   string
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (o Options) httpClient(timeout time.Duration) *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: timeout}
}

// New creates a client for the configured provider.
func New(cfg config.ModelConfig) (Generator, error) {
	opts := Options{Model: cfg.ID, BaseURL: cfg.BaseURL, APIKey: cfg.APIKey}
	switch cfg.Provider {
	case "openai", "ollama", "lmstudio":
		return NewOpenAI(cfg.Provider, opts)
	case "anthropic":
		return NewAnthropic(opts)
	case "gemini", "google":
		return NewGemini(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
