package answer

import (
	"context"
	"fmt"
	"strings"
)

// VoiceResponse is the spoken reply to a voice question.
type VoiceResponse struct {
	Transcript string
	Response   *Response
	Audio      []byte // mp3
}

// Voice transcribes audio, answers the transcript and synthesizes the answer.
// Question in req is replaced by the transcript.
func (p *Pipeline) Voice(ctx context.Context, req Request, audio []byte, filename string) (*VoiceResponse, error) {
	if p.transcriber == nil || p.synthesizer == nil {
		return nil, ErrSpeechUnavailable
	}

	transcript, err := p.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyQuestion
	}

	req.Question = transcript
	response, err := p.Answer(ctx, req)
	if err != nil {
		return nil, err
	}

	speech, err := p.synthesizer.Synthesize(ctx, response.Answer)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	return &VoiceResponse{
		Transcript: transcript,
		Response:   response,
		Audio:      speech,
	}, nil
}
