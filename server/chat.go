package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
)

// Snippet lengths for returned sources.
const (
	chatSnippetLength  = 200
	querySnippetLength = 300
)

type chatRequest struct {
	Message    string `json:"message"`
	Department string `json:"department"`
	K          int    `json:"k"`
	ChainType  string `json:"chain_type"`
	UserID     string `json:"user_id"`
}

func (r chatRequest) toAnswer() answer.Request {
	return answer.Request{
		Session:      r.UserID,
		Question:     r.Message,
		Department:   r.Department,
		K:            r.K,
		Strategy:     r.ChainType,
		ApprovedOnly: true,
	}
}

type sourceDoc struct {
	Source   string            `json:"source"`
	Snippet  string            `json:"snippet"`
	Metadata map[string]string `json:"metadata"`
	Score    float32           `json:"score"`
}

type chatResponse struct {
	Response       string      `json:"response"`
	Department     string      `json:"department"`
	Sources        []sourceDoc `json:"sources"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
	Degraded       bool        `json:"degraded,omitempty"`
}

type queryRequest struct {
	Query     string `json:"query"`
	K         int    `json:"k"`
	ChainType string `json:"chain_type"`
}

type queryResponse struct {
	Answer         string      `json:"answer"`
	Sources        []sourceDoc `json:"sources"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
}

func sourceDocs(results []*core.SearchResult, snippet int, ellipsis bool) []sourceDoc {
	docs := make([]sourceDoc, 0, len(results))
	for _, r := range results {
		text := search.Snippet(r.Fragment.Text, snippet)
		if ellipsis && text != r.Fragment.Text {
			text += "..."
		}
		docs = append(docs, sourceDoc{
			Source:   r.Fragment.Source,
			Snippet:  text,
			Metadata: r.Fragment.Metadata,
			Score:    r.Score,
		})
	}
	return docs
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, ErrBadRequest)
		return
	}
	if s.limited(c, req.UserID) {
		return
	}

	resp, err := s.docent.Answer(c.Request.Context(), req.toAnswer())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{
		Response:       resp.Answer,
		Department:     resp.Department,
		Sources:        sourceDocs(resp.Sources, chatSnippetLength, false),
		ElapsedSeconds: resp.Elapsed.Seconds(),
		Degraded:       resp.Degraded,
	})
}

// chatStream writes one JSON event per line, flushing after each.
func (s *Server) chatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, ErrBadRequest)
		return
	}
	if s.limited(c, req.UserID) {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := s.docent.Stream(ctx, req.toAnswer())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	enc := json.NewEncoder(c.Writer)
	for event := range events {
		if err := enc.Encode(event); err != nil {
			s.logger.Debug("stream aborted", "error", err)
			return
		}
		c.Writer.Flush()
	}
}

// query answers over every indexed document without department framing or history.
func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, ErrBadRequest)
		return
	}
	if s.limited(c, "") {
		return
	}

	ready, err := s.docent.Retriever().Ready(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ready {
		s.fail(c, core.ErrIndexUnavailable)
		return
	}

	resp, err := s.docent.Answer(c.Request.Context(), answer.Request{
		Question: req.Query,
		K:        req.K,
		Strategy: req.ChainType,
		Raw:      true,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, queryResponse{
		Answer:         resp.Answer,
		Sources:        sourceDocs(resp.Sources, querySnippetLength, true),
		ElapsedSeconds: resp.Elapsed.Seconds(),
	})
}

// voiceChat transcribes the uploaded "file", answers it and returns speech.
func (s *Server) voiceChat(c *gin.Context) {
	header, name, err := s.formFile(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	userID := c.PostForm("user_id")
	if s.limited(c, userID) {
		return
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp, err := s.docent.Answers().Voice(c.Request.Context(), answer.Request{
		Session:      userID,
		Department:   c.PostForm("department"),
		ApprovedOnly: true,
	}, audio, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("X-Transcript", strings.Join(strings.Fields(resp.Transcript), " "))
	c.Data(http.StatusOK, "audio/mpeg", resp.Audio)
}
