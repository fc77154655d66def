package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Cap(t *testing.T) {
	tests := []struct {
		name     string
		maxTurns int
		want     int
	}{
		{"default", 0, DefaultMaxTurns},
		{"negative", -3, DefaultMaxTurns},
		{"even", 10, 10},
		{"odd rounds up", 7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewStore(tt.maxTurns).MaxTurns())
		})
	}
}

func TestStore_AppendAndRender(t *testing.T) {
	s := NewStore(20)
	require.NoError(t, s.Append("u1", core.RoleStudent, "When is the exam?"))
	require.NoError(t, s.Append("u1", core.RoleAssistant, "On Monday."))

	assert.Equal(t, "Student: When is the exam?\nAssistant: On Monday.", s.Render("u1"))
	assert.Equal(t, "", s.Render("nobody"))
	assert.Equal(t, 1, s.Sessions())
}

func TestStore_InvalidRole(t *testing.T) {
	s := NewStore(4)
	assert.ErrorIs(t, s.Append("u1", core.Role(9), "x"), core.ErrInvalidRole)
	assert.Equal(t, 0, s.Sessions())
}

func TestStore_TrimsToMostRecent(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append("u1", core.RoleStudent, fmt.Sprintf("q%d", i)))
		require.NoError(t, s.Append("u1", core.RoleAssistant, fmt.Sprintf("a%d", i)))
	}

	turns := s.Turns("u1")
	require.Len(t, turns, 4)
	assert.Equal(t, "q3", turns[0].Content)
	assert.Equal(t, "a4", turns[3].Content)
}

func TestStore_AppendExchange(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 3; i++ {
		s.AppendExchange("u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := s.Turns("u1")
	require.Len(t, turns, 4)
	assert.Equal(t, core.Turn{Role: core.RoleStudent, Content: "q1"}, turns[0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "a2"}, turns[3])
	assert.Equal(t, "Student: q1\nAssistant: a1\nStudent: q2\nAssistant: a2", s.Render("u1"))
}

func TestStore_SessionsIsolated(t *testing.T) {
	s := NewStore(20)
	require.NoError(t, s.Append("a", core.RoleStudent, "hello from a"))
	require.NoError(t, s.Append("b", core.RoleStudent, "hello from b"))

	assert.Equal(t, "Student: hello from a", s.Render("a"))
	assert.Equal(t, "Student: hello from b", s.Render("b"))
	assert.Equal(t, 2, s.Sessions())
}

func TestStore_TurnsIsCopy(t *testing.T) {
	s := NewStore(20)
	require.NoError(t, s.Append("u1", core.RoleStudent, "original"))

	turns := s.Turns("u1")
	turns[0].Content = "changed"
	assert.Equal(t, "original", s.Turns("u1")[0].Content)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore(1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append("shared", core.RoleStudent, "hi")
		}()
	}
	wg.Wait()
	assert.Len(t, s.Turns("shared"), 100)
}
