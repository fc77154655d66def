package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/poiesic/docent/ai"
)

// speechTimeout bounds a single transcription or synthesis call.
const speechTimeout = 120 * time.Second

// SpeechClient implements ai.Transcriber and ai.Synthesizer against the
// OpenAI-compatible /audio endpoints.
type SpeechClient struct {
	baseURL            string
	token              string
	transcriptionModel string
	speechModel        string
	voice              string
	httpClient         *http.Client
	logger             *slog.Logger
}

var (
	_ ai.Transcriber = (*SpeechClient)(nil)
	_ ai.Synthesizer = (*SpeechClient)(nil)
)

// newSpeechClient is an internal constructor that returns the concrete type.
func newSpeechClient(config *ai.Config, httpClient *http.Client) *SpeechClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: speechTimeout}
	}
	return &SpeechClient{
		baseURL:            config.SpeechHost,
		token:              config.Token(),
		transcriptionModel: config.TranscriptionModel,
		speechModel:        config.SpeechModel,
		voice:              config.SpeechVoice,
		httpClient:         httpClient,
		logger:             slog.Default().With("component", "openai-speech"),
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Transcribe posts audio to /audio/transcriptions.
func (s *SpeechClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}
	if err := writer.WriteField("model", s.transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	s.logger.Debug("transcribing audio", "bytes", len(audio), "model", s.transcriptionModel)

	respBody, err := s.post(ctx, "/audio/transcriptions", writer.FormDataContentType(), body)
	if err != nil {
		return "", err
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse transcription: %w", err)
	}
	return result.Text, nil
}

// Synthesize posts text to /audio/speech and returns mp3 audio.
func (s *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          s.speechModel,
		Input:          speakable(text),
		Voice:          s.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("synthesizing speech", "length", len(text), "model", s.speechModel)
	return s.post(ctx, "/audio/speech", "application/json", bytes.NewReader(payload))
}

func (s *SpeechClient) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ai.ErrRateLimited, truncate(string(respBody), 200))
	case resp.StatusCode != http.StatusOK:
		s.logger.Error("speech API error", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("speech API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}
