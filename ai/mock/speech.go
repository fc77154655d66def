package mock

import (
	"context"
	"sync/atomic"
)

// MockSpeech is a test double for ai.Transcriber and ai.Synthesizer.
type MockSpeech struct {
	// Transcript is returned by Transcribe.
	Transcript string

	// Err, if set, is returned by both methods.
	Err error

	transcribed atomic.Int64
	synthesized atomic.Int64
}

// NewMockSpeech creates a mock speech service returning transcript.
func NewMockSpeech(transcript string) *MockSpeech {
	return &MockSpeech{Transcript: transcript}
}

// Transcribe returns the configured transcript.
func (m *MockSpeech) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	m.transcribed.Add(1)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcript, nil
}

// Synthesize returns the text bytes prefixed with "audio:".
func (m *MockSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.synthesized.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return []byte("audio:" + text), nil
}

// Calls returns the number of transcriptions and syntheses.
func (m *MockSpeech) Calls() (transcribed, synthesized int) {
	return int(m.transcribed.Load()), int(m.synthesized.Load())
}
