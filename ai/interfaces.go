package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces answers from a chat transcript.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate makes a single blocking call and returns the full answer.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStream calls onChunk with each piece of the answer as the model
	// produces it and returns the concatenated answer. An error from onChunk
	// stops the stream and is returned.
	GenerateStream(ctx context.Context, messages []Message, onChunk func(chunk string) error) (string, error)
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	// Transcribe returns the text spoken in audio. filename carries the
	// container format through its extension.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	// Synthesize returns encoded audio for text.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Transcriber returns the speech-to-text service, or nil when speech is not configured.
	Transcriber() Transcriber

	// Synthesizer returns the text-to-speech service, or nil when speech is not configured.
	Synthesizer() Synthesizer

	// Close releases resources held by the provider and its services.
	Close() error
}
