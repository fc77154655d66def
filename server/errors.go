package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/search"
)

var (
	// ErrBadRequest is returned for malformed request bodies.
	ErrBadRequest = errors.New("invalid request payload")

	// ErrRateLimited is returned when a session exceeds its request rate.
	ErrRateLimited = errors.New("too many requests, slow down")

	// ErrUploadTooLarge is returned for uploads over the configured limit.
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, answer.ErrEmptyQuestion),
		errors.Is(err, answer.ErrUnknownStrategy),
		errors.Is(err, core.ErrInvalidDocumentKey),
		errors.Is(err, search.ErrInvalidK):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDocumentNotFound),
		errors.Is(err, ingestion.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingestion.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrExtractionUnavailable),
		errors.Is(err, core.ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrIndexUnavailable),
		errors.Is(err, answer.ErrSpeechUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail aborts the request with the status mapped from err.
// Internal errors are logged and reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", err)
		detail = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Detail: detail})
}
