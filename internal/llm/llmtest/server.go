// Package llmtest provides test doubles for the inference endpoint.
package llmtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// GenerateRequest is the body an Ollama /api/generate handler receives.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ReplyFunc decides the reply text and status code for one request.
type ReplyFunc func(req GenerateRequest) (string, int)

// Server is a fake Ollama server that records every request it receives.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requests    []GenerateRequest
	contentType []string
}

// NewServer starts a fake server and registers its shutdown with t.
func NewServer(t testing.TB, reply ReplyFunc) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{}
	r := gin.New()
	r.POST("/api/generate", func(c *gin.Context) {
		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.contentType = append(s.contentType, c.GetHeader("Content-Type"))
		s.mu.Unlock()

		text, status := reply(req)
		if status != http.StatusOK {
			c.JSON(status, gin.H{"error": text})
			return
		}
		c.JSON(http.StatusOK, gin.H{"model": req.Model, "response": text, "done": true})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Fixed returns a ReplyFunc that always answers text with 200 OK.
func Fixed(text string) ReplyFunc {
	return func(GenerateRequest) (string, int) {
		return text, http.StatusOK
	}
}

func (s *Server) Requests() []GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GenerateRequest(nil), s.requests...)
}

func (s *Server) ContentTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.contentType...)
}
