package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
)

// Strategy selects how retrieved fragments are fed to the model.
type Strategy string

const (
	// StrategyStuff places every fragment into a single prompt.
	StrategyStuff Strategy = "stuff"
	// StrategyRefine answers from the first fragment and refines once per remaining fragment.
	StrategyRefine Strategy = "refine"
)

// ParseStrategy maps a name to a Strategy. An empty name means stuff.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", StrategyStuff:
		return StrategyStuff, nil
	case StrategyRefine:
		return StrategyRefine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Retriever is the part of search.Retriever the answer pipeline uses.
type Retriever interface {
	Ready(ctx context.Context) (bool, error)
	Retrieve(ctx context.Context, query string, k int, opts search.RetrieveOptions) ([]*core.SearchResult, error)
}

// QueryEngine binds a retriever scoped to k with a generation strategy.
type QueryEngine struct {
	k         int
	strategy  Strategy
	retriever Retriever
	generator ai.Generator
}

// K returns the number of fragments retrieved per question.
func (e *QueryEngine) K() int { return e.k }

// Strategy returns the generation strategy.
func (e *QueryEngine) Strategy() Strategy { return e.strategy }

// Retrieve returns the top fragments for question.
func (e *QueryEngine) Retrieve(ctx context.Context, question string, opts search.RetrieveOptions) ([]*core.SearchResult, error) {
	return e.retriever.Retrieve(ctx, question, e.k, opts)
}

// Generate produces an answer from the retrieved fragments. When onChunk
// is set the final model call is streamed through it.
func (e *QueryEngine) Generate(ctx context.Context, system, question string, results []*core.SearchResult, onChunk func(string) error) (string, error) {
	if e.strategy == StrategyStuff || len(results) <= 1 {
		return e.call(ctx, stuffMessages(system, results, question), onChunk)
	}

	answer, err := e.generator.Generate(ctx, stuffMessages(system, results[:1], question))
	if err != nil {
		return "", err
	}
	for i, result := range results[1:] {
		var stream func(string) error
		if i == len(results)-2 {
			stream = onChunk
		}
		answer, err = e.call(ctx, refineMessages(system, answer, result, question), stream)
		if err != nil {
			return "", err
		}
	}
	return answer, nil
}

func (e *QueryEngine) call(ctx context.Context, messages []ai.Message, onChunk func(string) error) (string, error) {
	if onChunk == nil {
		return e.generator.Generate(ctx, messages)
	}
	return e.generator.GenerateStream(ctx, messages, onChunk)
}
