package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DOCENT_PERSIST_DIR", filepath.Join(t.TempDir(), "index"))
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"docent"}, args...))
	return out.String(), err
}

func TestReembedCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "reembed")

	flags := map[string]cli.Flag{}
	for _, f := range cmd.Flags {
		flags[f.Names()[0]] = f
	}

	t.Run("embedding-model is required", func(t *testing.T) {
		model, ok := flags["embedding-model"].(*cli.StringFlag)
		require.True(t, ok)
		assert.True(t, model.Required)
		assert.Empty(t, model.Value)
	})

	t.Run("embedding-host defaults to the configuration", func(t *testing.T) {
		host, ok := flags["embedding-host"].(*cli.StringFlag)
		require.True(t, ok)
		assert.Empty(t, host.Value)
		assert.Empty(t, host.EnvVars)
	})

	t.Run("numeric defaults", func(t *testing.T) {
		assert.Equal(t, 100, flags["batch-size"].(*cli.IntFlag).Value)
		assert.Equal(t, 100, flags["report-interval"].(*cli.IntFlag).Value)
		assert.Equal(t, 3, flags["max-retries"].(*cli.IntFlag).Value)
	})

	t.Run("missing model fails", func(t *testing.T) {
		_, err := runApp(t, "reembed")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("invalid batch size fails before opening the index", func(t *testing.T) {
		_, err := runApp(t, "reembed", "--embedding-model", "m", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"defaults", nil, ""},
		{"json", []string{"--log-format", "json", "--log-level", "debug"}, ""},
		{"bad level", []string{"--log-level", "loud"}, "invalid log level"},
		{"bad format", []string{"--log-format", "xml"}, "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, append(tt.args, "documents")...)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"ingest without files", []string{"ingest"}, "at least one file"},
		{"ask without question", []string{"ask", "  "}, "question is required"},
		{"delete without name", []string{"delete"}, "exactly one"},
		{"delete with two names", []string{"delete", "a.pdf", "b.pdf"}, "exactly one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocumentsCommand_EmptyIndex(t *testing.T) {
	out, err := runApp(t, "documents")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "FRAGMENTS")
}

func TestIngestCommand_MissingFile(t *testing.T) {
	_, err := runApp(t, "ingest", filepath.Join(os.TempDir(), "does-not-exist.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
}

func TestConfigFlag_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docent.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	_, err := runApp(t, "--config", path, "documents")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
