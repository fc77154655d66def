package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocumentKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "plain pdf", key: "handbook.pdf"},
		{name: "spaces allowed", key: "fee structure 2025.pdf"},
		{name: "empty", key: "", wantErr: true},
		{name: "whitespace", key: "   ", wantErr: true},
		{name: "path traversal", key: "../secrets.pdf", wantErr: true},
		{name: "nested path", key: "dir/file.pdf", wantErr: true},
		{name: "windows path", key: `dir\file.pdf`, wantErr: true},
		{name: "dot", key: ".", wantErr: true},
		{name: "too long", key: strings.Repeat("a", 256), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocumentKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment *Fragment
		wantErr  error
	}{
		{
			name:     "valid fragment",
			fragment: NewFragment("a.pdf", 0, "Hello world", nil),
		},
		{
			name:     "nil fragment",
			fragment: nil,
			wantErr:  ErrInvalidFragment,
		},
		{
			name:     "blank text",
			fragment: NewFragment("a.pdf", 0, "  \n ", nil),
			wantErr:  ErrEmptyContent,
		},
		{
			name:     "bad source",
			fragment: NewFragment("", 0, "text", nil),
			wantErr:  ErrInvalidDocumentKey,
		},
		{
			name:     "negative chunk",
			fragment: &Fragment{Source: "a.pdf", ChunkID: -1, Text: "text"},
			wantErr:  ErrInvalidFragment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFragment(tt.fragment)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, ValidateRole(RoleStudent))
	assert.NoError(t, ValidateRole(RoleAssistant))
	assert.ErrorIs(t, ValidateRole(Role(0)), ErrInvalidRole)
	assert.ErrorIs(t, ValidateRole(Role(7)), ErrInvalidRole)
}
