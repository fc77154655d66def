package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/docent/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpeechClient(t *testing.T, handler http.HandlerFunc) *SpeechClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := ai.NewConfig(ai.WithSpeechHost(server.URL), ai.WithAPIKey("sk-test"))
	require.NoError(t, config.Validate())
	return newSpeechClient(config, server.Client())
}

func TestSpeechClient_Transcribe(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "question.webm", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("audio-bytes"), data)

		json.NewEncoder(w).Encode(map[string]string{"text": "When is the fee deadline?"})
	})

	text, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "uploads/question.webm")
	require.NoError(t, err)
	assert.Equal(t, "When is the fee deadline?", text)
}

func TestSpeechClient_Synthesize(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)

		var req speechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tts-1", req.Model)
		assert.Equal(t, "alloy", req.Voice)
		assert.Equal(t, "Fees close on Friday.", req.Input)

		w.Write([]byte("mp3-bytes"))
	})

	audio, err := client.Synthesize(context.Background(), "**Fees** close on _Friday_.")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
}

func TestSpeechClient_RateLimited(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	})

	_, err := client.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ai.ErrRateLimited)
}

func TestSpeechClient_ServerError(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Transcribe(context.Background(), []byte("x"), "a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.False(t, ai.IsRateLimit(err))
}

func TestProvider_SpeechDisabled(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig())
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Generator())
	assert.Nil(t, provider.Transcriber())
	assert.Nil(t, provider.Synthesizer())
}
