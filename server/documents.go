package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type uploadResponse struct {
	Message  string `json:"message"`
	Chunks   int    `json:"num_chunks"`
	StoredAt string `json:"stored_at"`
}

type asyncUploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

type statusResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Progress int    `json:"progress"`
	Chunks   int    `json:"num_chunks,omitempty"`
	Error    string `json:"error,omitempty"`
}

type documentResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Chunks int    `json:"num_chunks"`
}

type healthResponse struct {
	Status     string   `json:"status"`
	DBLoaded   bool     `json:"db_loaded"`
	Ready      bool     `json:"ready"`
	Documents  int      `json:"documents"`
	Fragments  int      `json:"fragments"`
	Extractors []string `json:"extraction_strategies"`
}

// formFile returns the uploaded "file" part and its plain file name.
func (s *Server) formFile(c *gin.Context) (*multipart.FileHeader, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, "", ErrBadRequest
	}
	if header.Size > s.maxUpload {
		return nil, "", fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, s.maxUpload)
	}
	return header, filepath.Base(header.Filename), nil
}

func (s *Server) upload(c *gin.Context) {
	header, name, err := s.formFile(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	result, err := s.docent.Ingest(c.Request.Context(), name, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{
		Message:  fmt.Sprintf("Document '%s' indexed and awaiting approval", name),
		Chunks:   result.Fragments,
		StoredAt: result.StoredAt,
	})
}

func (s *Server) uploadAsync(c *gin.Context) {
	header, name, err := s.formFile(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	f, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	id, err := s.docent.Submit(name, content)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.activity.Record("upload_started", name, id)
	c.JSON(http.StatusAccepted, asyncUploadResponse{UploadID: id, Status: "started"})
}

func (s *Server) uploadStatus(c *gin.Context) {
	job, err := s.docent.Job(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		Status:   string(job.Status),
		Filename: job.Filename,
		Progress: job.Progress,
		Chunks:   job.Fragments,
		Error:    job.Error,
	})
}

func (s *Server) documents(c *gin.Context) {
	docs, err := s.docent.Documents(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{Name: d.Key, Status: d.State.String(), Chunks: d.Fragments})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) approve(c *gin.Context) {
	name := c.Param("name")
	if err := s.docent.Approve(name); err != nil {
		s.fail(c, err)
		return
	}
	s.activity.Record("approved", name, "")
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Document '%s' approved", name)})
}

func (s *Server) delete(c *gin.Context) {
	name := c.Param("name")
	removed, err := s.docent.Delete(c.Request.Context(), name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("Document '%s' deleted", name),
		"chunks_removed": removed,
	})
}

func (s *Server) logs(c *gin.Context) {
	entries := s.activity.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	c.JSON(http.StatusOK, gin.H{"logs": lines, "entries": entries})
}

func (s *Server) health(c *gin.Context) {
	h, err := s.docent.Health(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:     "ok",
		DBLoaded:   h.IndexLoaded,
		Ready:      h.IndexLoaded,
		Documents:  h.Documents,
		Fragments:  h.Fragments,
		Extractors: h.Strategies,
	})
}
