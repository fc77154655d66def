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


package core

import (
	"fmt"
	"strings"
)

// maxDocumentKeyLength bounds document keys so they stay usable as file names.
const maxDocumentKeyLength = 255

// ValidateDocumentKey validates a document key.
//
// Validation rules:
//   - Key must not be empty or whitespace
//   - Key must be a plain file name (no path separators, not "." or "..")
//   - Key must not exceed 255 bytes or contain NUL
func ValidateDocumentKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidDocumentKey)
	}
	if len(key) > maxDocumentKeyLength {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrInvalidDocumentKey, maxDocumentKeyLength)
	}
	if key == "." || key == ".." || strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("%w: %q is not a plain file name", ErrInvalidDocumentKey, key)
	}
	return nil
}

// ValidateFragment validates a Fragment according to domain rules.
//
// Validation rules:
//   - Text must not be empty after trimming
//   - Source must be a valid document key
//   - ChunkID must not be negative
//
// NOT validated (populated by the writer):
//   - Vector (empty until embedded)
//   - ID (assigned by the database sequence)
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}

	if strings.TrimSpace(fragment.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyContent)
	}

	if err := ValidateDocumentKey(fragment.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, err)
	}

	if fragment.ChunkID < 0 {
		return fmt.Errorf("%w: negative chunk id %d", ErrInvalidFragment, fragment.ChunkID)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleStudent && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
