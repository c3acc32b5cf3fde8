// Package llm is the boundary to the external text-generation capability.
// A Gateway issues exactly one upstream call per Generate invocation;
// failures are surfaced once and never retried here.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atelierhq/atelier/internal/llm/provider"
)

// ErrNotConfigured is returned when no generation credential is available.
// Callers map it to a server configuration error and make no upstream call.
var ErrNotConfigured = errors.New("generation provider not configured")

// Settings selects the generation profile for a gateway. Model and
// temperature are per-call configuration, not runtime decisions.
type Settings struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
}

// envKeyFor maps a provider name to its conventional credential variable.
func envKeyFor(name string) string {
	switch name {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return strings.ToUpper(name) + "_API_KEY"
	}
}

// Resolve builds a Gateway from settings, falling back to the provider's
// conventional environment variable for the credential. It returns
// ErrNotConfigured when no credential can be found, before any network
// activity.
func Resolve(s Settings) (*Gateway, error) {
	name := s.Provider
	if name == "" {
		name = "openai"
	}

	apiKey := s.APIKey
	if apiKey == "" && name != "mock" {
		apiKey = os.Getenv(envKeyFor(name))
	}
	if apiKey == "" && name != "mock" {
		return nil, fmt.Errorf("%w: no credential for provider %q", ErrNotConfigured, name)
	}

	p, err := provider.New(name, map[string]any{"api_key": apiKey})
	if err != nil {
		return nil, fmt.Errorf("create provider %q: %w", name, err)
	}

	return NewGateway(provider.NewInstrumentedProvider(p), s.Model, s.Temperature), nil
}

// Gateway wraps a provider with a fixed model and temperature.
type Gateway struct {
	provider    provider.Provider
	model       string
	temperature float64
}

// NewGateway creates a gateway over an already-constructed provider.
func NewGateway(p provider.Provider, model string, temperature float64) *Gateway {
	return &Gateway{provider: p, model: model, temperature: temperature}
}

// Generate issues one completion call. The system instruction, when
// non-empty, is prepended as a system message; how each provider carries
// it downstream is the provider's concern. The raw model text is returned
// without any parsing.
func (g *Gateway) Generate(ctx context.Context, system string, messages []provider.Message, maxTokens int) (string, error) {
	msgs := make([]provider.Message, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, messages...)

	resp, err := g.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages:    msgs,
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
