// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyResponse indicates the model returned no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate makes a single blocking chat completion call.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message) (string, error) {
	response, err := g.client.GenerateContent(ctx, toMessageContent(messages), llms.WithTemperature(g.temperature))
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", classifyError(err)
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}

// GenerateStream streams the completion through onChunk.
func (g *Generator) GenerateStream(ctx context.Context, messages []ai.Message, onChunk func(chunk string) error) (string, error) {
	var answer strings.Builder
	streaming := llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		answer.Write(chunk)
		return onChunk(string(chunk))
	})

	response, err := g.client.GenerateContent(ctx, toMessageContent(messages), llms.WithTemperature(g.temperature), streaming)
	if err != nil {
		g.logger.Error("failed to stream content", "streamed", answer.Len(), "err", err)
		return answer.String(), classifyError(err)
	}
	if answer.Len() == 0 && len(response.Choices) > 0 {
		// Some servers ignore the stream flag and answer in one piece.
		content := response.Choices[0].Content
		if content != "" {
			if err := onChunk(content); err != nil {
				return "", err
			}
		}
		return content, nil
	}
	return answer.String(), nil
}

func toMessageContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case ai.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case ai.RoleAI:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	return content
}

// classifyError tags quota failures with ai.ErrRateLimited.
func classifyError(err error) error {
	if err == nil || errors.Is(err, ai.ErrRateLimited) || !ai.IsRateLimit(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
}
