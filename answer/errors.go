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

package answer

import "errors"

var (
	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrConversationRequired is returned when a conversation store is not provided.
	ErrConversationRequired = errors.New("conversation store required")

	// ErrUnknownStrategy is returned for a generation strategy other than stuff or refine.
	ErrUnknownStrategy = errors.New("unknown generation strategy")

	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrSpeechUnavailable is returned by voice requests when no speech service is configured.
	ErrSpeechUnavailable = errors.New("speech service not configured")
)
