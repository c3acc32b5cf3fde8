package provider

import (
	"context"
)

func init() {
	RegisterFactory("mock", func(config map[string]any) (Provider, error) {
		return NewMockProvider("mock"), nil
	})
}

// MockProvider is a mock LLM provider for testing
type MockProvider struct {
	name string

	// Responses to return for each request, in order
	CompletionResponses []*CompletionResponse
	Errors              []error

	// Track calls
	CompletionCalls []CompletionRequest

	currentIndex int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:                name,
		CompletionResponses: []*CompletionResponse{},
		Errors:              []error{},
		CompletionCalls:     []CompletionRequest{},
	}
}

// WithResponse queues a canned text response.
func (m *MockProvider) WithResponse(content string) *MockProvider {
	m.CompletionResponses = append(m.CompletionResponses, &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
	m.Errors = append(m.Errors, nil)
	return m
}

// WithError queues an error response.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.CompletionResponses = append(m.CompletionResponses, nil)
	m.Errors = append(m.Errors, err)
	return m
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return m.name
}

// CreateCompletion implements Provider
func (m *MockProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	m.CompletionCalls = append(m.CompletionCalls, request)

	if m.currentIndex < len(m.Errors) && m.Errors[m.currentIndex] != nil {
		err := m.Errors[m.currentIndex]
		m.currentIndex++
		return nil, err
	}

	if m.currentIndex < len(m.CompletionResponses) && m.CompletionResponses[m.currentIndex] != nil {
		response := m.CompletionResponses[m.currentIndex]
		m.currentIndex++
		return response, nil
	}

	return &CompletionResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}
