package provider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atelierhq/atelier/pkg/observability"
)

// InstrumentedProvider wraps a Provider with tracing and metrics. Every
// generation call is recorded with its provider, model, duration, token
// usage, and outcome.
type InstrumentedProvider struct {
	provider Provider
}

// NewInstrumentedProvider wraps a provider with automatic observability
func NewInstrumentedProvider(p Provider) *InstrumentedProvider {
	return &InstrumentedProvider{provider: p}
}

// Name returns the underlying provider name
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// CreateCompletion creates a completion with automatic instrumentation
func (p *InstrumentedProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	ctx, span := observability.StartSpan(ctx, fmt.Sprintf("llm.%s.completion", p.provider.Name()),
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", request.Model),
			attribute.Float64("llm.temperature", request.Temperature),
			attribute.Int("llm.max_tokens", request.MaxTokens),
			attribute.Int("llm.messages_count", len(request.Messages)),
		),
	)
	defer span.End()

	startTime := time.Now()
	response, err := p.provider.CreateCompletion(ctx, request)
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
		attribute.Bool("llm.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		observability.RecordGeneration(p.provider.Name(), "error", duration)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", response.Usage.TotalTokens),
		attribute.String("llm.finish_reason", response.FinishReason),
	)
	observability.RecordGeneration(p.provider.Name(), "ok", duration)

	return response, nil
}
