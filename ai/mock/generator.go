package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/docent/ai"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateFunc is called by Generate and GenerateStream if set.
	// If nil, echoes the last message prefixed with "answer: ".
	GenerateFunc func(ctx context.Context, messages []ai.Message) (string, error)

	// Chunks, if set, replaces the streamed pieces of the answer.
	Chunks []string

	callCount atomic.Int64
	last      atomic.Pointer[[]ai.Message]
}

// NewMockGenerator creates a mock generator with default echo behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns the injected or echoed answer.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	m.callCount.Add(1)
	m.last.Store(&messages)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return "answer: " + messages[len(messages)-1].Content, nil
}

// GenerateStream splits the answer into word chunks, or sends Chunks if set.
func (m *MockGenerator) GenerateStream(ctx context.Context, messages []ai.Message, onChunk func(chunk string) error) (string, error) {
	chunks := m.Chunks
	if chunks == nil {
		answer, err := m.Generate(ctx, messages)
		if err != nil {
			return "", err
		}
		chunks = strings.SplitAfter(answer, " ")
	} else {
		m.callCount.Add(1)
		m.last.Store(&messages)
	}

	var full strings.Builder
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}
		if err := onChunk(chunk); err != nil {
			return full.String(), err
		}
		full.WriteString(chunk)
	}
	return full.String(), nil
}

// CallCount returns the number of generation calls.
func (m *MockGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// LastMessages returns the prompt of the most recent call.
func (m *MockGenerator) LastMessages() []ai.Message {
	if p := m.last.Load(); p != nil {
		return *p
	}
	return nil
}
