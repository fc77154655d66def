package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Strategy converts one kind of file into text.
// Implementations only read the file at path.
type Strategy interface {
	// Name identifies the strategy in logs and errors.
	Name() string

	// Accepts reports whether the strategy handles the file name.
	Accepts(filename string) bool

	// Extract returns the text of the file at path.
	Extract(ctx context.Context, path string) (string, error)
}

// Chain tries strategies in priority order until one produces text.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain) error

// WithStrategies replaces the default strategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(c *Chain) error {
		if len(strategies) == 0 {
			return ErrNoStrategies
		}
		c.strategies = strategies
		return nil
	}
}

// WithLogger sets a custom logger for the chain.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) error {
		c.logger = logger
		return nil
	}
}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewPDFLayoutStrategy(),
		NewPDFPlainStrategy(),
		NewPDFPagesStrategy(),
		NewHTMLStrategy(),
		NewMarkdownStrategy(),
		NewDocxStrategy(),
		NewXLSXStrategy(),
		NewTextStrategy(),
	}
}

// NewChain creates a chain using the default strategies unless overridden.
func NewChain(opts ...Option) (*Chain, error) {
	c := &Chain{
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "extract")
	return c, nil
}

// Strategies returns the names of the configured strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Extract runs every accepting strategy in order and returns the first
// non-blank result. Failures advance to the next strategy; if none
// succeeds the error is an *UnavailableError.
func (c *Chain) Extract(ctx context.Context, path string) (string, error) {
	filename := filepath.Base(path)
	unavailable := &UnavailableError{File: filename}

	for _, strategy := range c.strategies {
		if !strategy.Accepts(filename) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := strategy.Extract(ctx, path)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoText
		}
		if err != nil {
			c.logger.Debug("extraction strategy failed", "strategy", strategy.Name(), "file", filename, "err", err)
			unavailable.Attempts = append(unavailable.Attempts, Attempt{Strategy: strategy.Name(), Err: err})
			continue
		}

		c.logger.Debug("extracted text", "strategy", strategy.Name(), "file", filename, "length", len(text))
		return text, nil
	}

	c.logger.Warn("no extraction strategy succeeded", "file", filename, "attempts", len(unavailable.Attempts))
	return "", unavailable
}

// hasExtension reports whether filename ends in one of exts, ignoring case.
func hasExtension(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// guard converts a panic inside a parser into an error.
func guard(name string, fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: malformed document: %v", name, r)
		}
	}()
	return fn()
}
