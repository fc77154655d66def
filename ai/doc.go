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


// Package ai provides abstractions for the model services docent consumes.
//
// Embedding, generation and speech are treated as black boxes behind small
// interfaces, so the ingestion and answer pipelines can run against real
// OpenAI-compatible servers or the test doubles in ai/mock.
//
//   - Embedder: text to vector
//   - Generator: chat transcript to answer, buffered or streamed
//   - Transcriber / Synthesizer: audio to text and back
//   - AIProvider: aggregates the services for initialization and shutdown
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and assert call counts.
//
// # Failure classification
//
// IsRateLimit recognizes quota and rate-limit failures so callers can degrade
// instead of failing. RetryWithBackoff retries transient failures but returns
// rate-limit failures immediately.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "When do fees close?")
//	answer, err := provider.Generator().Generate(ctx, []ai.Message{
//	    ai.SystemMessage("You are a college assistant."),
//	    ai.HumanMessage("When do fees close?"),
//	})
package ai
