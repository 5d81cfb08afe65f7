package model

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// ToolDefinition describes a tool exposed to the model.
type ToolDefinition struct {
	// Name is the unique tool identifier.
	Name string `json:"name"`
	// Description explains the tool purpose to the model.
	Description string `json:"description"`
	// Parameters is a JSON schema for the tool arguments.
	Parameters map[string]any `json:"parameters"`
}

// Request carries everything a model needs to produce the next assistant
// message for a conversation.
type Request struct {
	// Messages is the conversation history in chronological order.
	Messages []core.Message
	// Tools lists the tools the model may call.
	Tools []ToolDefinition
	// Model optionally overrides the adapter's configured model identifier.
	Model string
	// Temperature overrides sampling temperature when > 0.
	Temperature float64
	// MaxTokens overrides the response token cap when > 0.
	MaxTokens int
	// Stream requests incremental partial responses when supported.
	Stream bool
}

// TokenUsage reports token consumption for a completed generation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response is a single emission from Generate. Streaming adapters emit zero
// or more partial responses followed by exactly one final response.
type Response struct {
	// Partial marks an incremental streaming chunk. The final response of a
	// generation always has Partial false.
	Partial bool
	// Message is the assistant message, complete on the final response.
	Message core.Message
	// FinishReason is the provider finish reason, set on the final response.
	FinishReason string
	// Usage is token accounting, set on the final response when available.
	Usage *TokenUsage
}

// Info describes a model adapter.
type Info struct {
	// Provider is the backing service, e.g. "openai" or "anthropic".
	Provider string
	// Name is the configured model identifier.
	Name string
}

// Model is the interface implemented by all language model adapters.
//
// Generate returns a response channel and an error channel. Both channels are
// closed when the generation completes. At most one error is sent; after an
// error no further responses follow. Implementations must honor context
// cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)
	Info() Info
}

// MockResponse scripts one generation for MockModel.
type MockResponse struct {
	// Message is returned as the final assistant message.
	Message core.Message
	// Err, when set, is sent instead of a message.
	Err error
}

// MockModel is a scripted model for tests and examples. Each call to Generate
// consumes the next scripted response; when the script is exhausted the
// fallback text is returned.
type MockModel struct {
	mu        sync.Mutex
	script    []MockResponse
	calls     int
	fallback  string
	modelName string

	// LastRequest records the most recent request for assertions.
	LastRequest Request
}

// NewMockModel creates a mock that always answers with the given text.
func NewMockModel(fallback string) *MockModel {
	return &MockModel{fallback: fallback, modelName: "mock-model"}
}

// NewScriptedMockModel creates a mock that plays the given responses in order.
func NewScriptedMockModel(script ...MockResponse) *MockModel {
	return &MockModel{script: script, fallback: "Mock response", modelName: "mock-model"}
}

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements the Model interface.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.LastRequest = req
	var scripted *MockResponse
	if idx < len(m.script) {
		scripted = &m.script[idx]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if ctx.Err() != nil {
			errCh <- ctx.Err()
			return
		}

		if scripted != nil {
			if scripted.Err != nil {
				errCh <- scripted.Err
				return
			}
			respCh <- Response{Message: scripted.Message, FinishReason: "stop"}
			return
		}

		respCh <- Response{Message: core.NewAssistantMessage(m.fallback), FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements the Model interface.
func (m *MockModel) Info() Info {
	return Info{Provider: "mock", Name: m.modelName}
}

var _ Model = (*MockModel)(nil)
