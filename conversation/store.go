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

// Package conversation keeps a bounded per-session transcript.
package conversation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/poiesic/docent/core"
)

// DefaultMaxTurns is the number of turns kept per session.
const DefaultMaxTurns = 20

// Store holds the recent turns of every session. Sessions are created on
// first use and never removed. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string][]core.Turn
	maxTurns int
}

// NewStore creates a store keeping up to maxTurns turns per session.
// Odd values are rounded up so a session always holds whole exchanges;
// non-positive values use DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns%2 != 0 {
		maxTurns++
	}
	return &Store{
		sessions: make(map[string][]core.Turn),
		maxTurns: maxTurns,
	}
}

// MaxTurns returns the per-session cap.
func (s *Store) MaxTurns() int {
	return s.maxTurns
}

// Append adds a turn to the session and drops the oldest turns beyond the cap.
func (s *Store) Append(session string, role core.Role, content string) error {
	if err := core.ValidateRole(role); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[session], core.Turn{Role: role, Content: content})
	if over := len(turns) - s.maxTurns; over > 0 {
		turns = append([]core.Turn(nil), turns[over:]...)
	}
	s.sessions[session] = turns
	return nil
}

// AppendExchange records a student question together with its answer, so a
// session never holds a question without a reply.
func (s *Store) AppendExchange(session, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[session],
		core.Turn{Role: core.RoleStudent, Content: question},
		core.Turn{Role: core.RoleAssistant, Content: answer})
	if over := len(turns) - s.maxTurns; over > 0 {
		turns = append([]core.Turn(nil), turns[over:]...)
	}
	s.sessions[session] = turns
}

// Turns returns a copy of the session's turns, oldest first.
func (s *Store) Turns(session string) []core.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[session]
	out := make([]core.Turn, len(turns))
	copy(out, turns)
	return out
}

// Render formats the session as one "Role: content" line per turn.
func (s *Store) Render(session string) string {
	turns := s.Turns(session)
	var sb strings.Builder
	for i, turn := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", turn.Role.Label(), turn.Content)
	}
	return sb.String()
}

// Sessions returns the number of known sessions.
func (s *Store) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
