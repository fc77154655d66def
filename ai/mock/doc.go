// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// ai.Transcriber, ai.Synthesizer and ai.AIProvider for use in unit tests.
// The mocks allow tests to run without external AI services and give
// deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	generator := mock.NewMockGenerator()
//	generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
//	    return "", errors.New("status code: 429")
//	}
//
//	// Check call counts
//	count := generator.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic vectors based on a text hash
//   - MockGenerator: echoes the last prompt message, streamed word by word
//   - MockSpeech: returns a fixed transcript and "audio:"-prefixed bytes
//   - MockProvider: aggregates the above, with speech disabled by default
package mock
