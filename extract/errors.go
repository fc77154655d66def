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

package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
)

var (
	// ErrNoText indicates a strategy ran but produced only whitespace.
	ErrNoText = errors.New("strategy produced no text")

	// ErrNoStrategies indicates a chain was built without strategies.
	ErrNoStrategies = errors.New("at least one extraction strategy is required")
)

// Attempt records the outcome of one strategy on one file.
type Attempt struct {
	Strategy string
	Err      error
}

// UnavailableError reports that no strategy produced text for a file.
// It unwraps to core.ErrExtractionUnavailable.
type UnavailableError struct {
	File     string
	Attempts []Attempt
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%s: no strategy accepts %s", core.ErrExtractionUnavailable, e.File)
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Strategy, a.Err)
	}
	return fmt.Sprintf("%s for %s (%s)", core.ErrExtractionUnavailable, e.File, strings.Join(parts, "; "))
}

func (e *UnavailableError) Unwrap() error {
	return core.ErrExtractionUnavailable
}
