package answer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docent/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	prompt := systemPrompt("Riverside College", "Financial Aid", "Student: hi\nAssistant: hello")

	assert.Contains(t, prompt, "Riverside College")
	assert.Contains(t, prompt, "specializing in Financial Aid")
	assert.Contains(t, prompt, "same language")
	assert.Contains(t, prompt, "Conversation so far:\nStudent: hi\nAssistant: hello")

	assert.NotContains(t, systemPrompt("X", "Y", ""), "Conversation so far")
}

func TestStuffMessages(t *testing.T) {
	messages := stuffMessages("sys", results("a.pdf", "b.pdf"), "why?")
	require.Len(t, messages, 2)
	assert.Equal(t, ai.RoleSystem, messages[0].Role)
	assert.Equal(t, ai.RoleHuman, messages[1].Role)
	assert.Contains(t, messages[1].Content, "[1] (a.pdf)\ntext of a.pdf\n\n[2] (b.pdf)")
	assert.True(t, strings.HasSuffix(messages[1].Content, "Student Question: why?"))

	empty := stuffMessages("sys", nil, "why?")
	assert.Contains(t, empty[1].Content, "(no matching documents)")
}

func TestNoIndexGuidance(t *testing.T) {
	a := noIndexGuidance("q", "Admissions")
	assert.Equal(t, a, noIndexGuidance("q", "Admissions"))
	assert.Contains(t, a, "\"q\" regarding Admissions")
	assert.Contains(t, a, "official Admissions resources")
}

func TestFallbackAnswer(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"passport", "PASSPORT renewal", "passport or travel document"},
		{"punjabi passport", "ਪਾਸਪੋਰਟ ਬਾਰੇ ਦੱਸੋ", "passport or travel document"},
		{"enroll", "can I enroll late", "for Registrar admissions"},
		{"generic", "cafeteria menu", "cafeteria menu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fallbackAnswer(tt.question, "Registrar")
			assert.Contains(t, got, tt.want)
			assert.Equal(t, got, fallbackAnswer(tt.question, "Registrar"))
		})
	}

	long := strings.Repeat("é", 150)
	got := fallbackAnswer(long, "General")
	assert.Contains(t, got, strings.Repeat("é", 100)+"...")
	assert.NotContains(t, got, strings.Repeat("é", 101))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 3))
	assert.Equal(t, "ab...", clip("abc", 2))
	assert.Equal(t, 4, utf8.RuneCountInString(clip("ਪਾਸਪੋਰਟ", 1)))
}
