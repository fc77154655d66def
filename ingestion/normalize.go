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

package ingestion

import (
	"html"
	"regexp"
	"strings"
)

var blankLines = regexp.MustCompile(`(\r?\n){2,}`)

// Normalize cleans extracted text before chunking. HTML entities are
// unescaped until none remain (so "&amp;lt;" becomes "<"), runs of two or
// more line breaks collapse into one and surrounding whitespace is trimmed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	for {
		unescaped := html.UnescapeString(text)
		if unescaped == text {
			break
		}
		text = unescaped
	}
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
