// Package server is the companion analysis backend: it answers chat
// questions and analyzes uploaded data files through an LLM.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/llm"
	"github.com/comigor/bizanalyst/internal/logger"
)

// multipartOverhead is allowed on top of the upload limit for part headers
// and boundaries.
const multipartOverhead = 64 * 1024

// Analyst produces the model's answers. It is nil when no API key is set.
type Analyst interface {
	Model() string
	Answer(ctx context.Context, question string, history []llm.Turn) (string, error)
	AnalyzeFile(ctx context.Context, filename, content string) (string, error)
}

// Server holds the HTTP handlers of the backend.
type Server struct {
	analyst   Analyst
	maxUpload int64
	apiKeyEnv string
}

// New returns a server. A nil analyst makes chat and analysis requests fail
// with a configuration error while health keeps reporting.
func New(analyst Analyst, maxUploadBytes int64, apiKeyEnv string) *Server {
	return &Server{analyst: analyst, maxUpload: maxUploadBytes, apiKeyEnv: apiKeyEnv}
}

// Router returns the chi router serving the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get(api.PathHealth, s.handleHealth)
	r.Post(api.PathChat, s.handleChat)
	r.Post(api.PathAnalyzeFile, s.handleAnalyzeFile)

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", addr, "api_key_configured", s.analyst != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := api.Health{Status: "healthy", APIKeyConfigured: s.analyst != nil, Message: "API is running"}
	if s.analyst == nil {
		h.Message = "API key not configured"
	}
	respondJSON(w, http.StatusOK, h)
}

// chatPayload accepts history entries from any client; timestamps are not
// needed to build the prompt.
type chatPayload struct {
	Message string `json:"message"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		respondJSON(w, http.StatusInternalServerError, api.ChatResponse{
			Error: fmt.Sprintf("API key not configured. Please set %s environment variable.", s.apiKeyEnv),
		})
		return
	}

	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, api.ChatResponse{Error: "Invalid request body"})
		return
	}
	if payload.Message == "" {
		respondJSON(w, http.StatusBadRequest, api.ChatResponse{Error: "No message provided"})
		return
	}

	turns := make([]llm.Turn, 0, len(payload.History))
	for _, h := range payload.History {
		role := h.Role
		if role == "" {
			role = "user"
		}
		turns = append(turns, llm.Turn{Role: role, Content: h.Content})
	}

	answer, err := s.analyst.Answer(r.Context(), payload.Message, turns)
	if err != nil {
		logger.L.Error("error in chat endpoint", "error", err)
		msg := "Error generating response: " + err.Error()
		if errors.Is(err, llm.ErrEmptyCompletion) {
			msg = "No response generated"
		}
		respondJSON(w, http.StatusInternalServerError, api.ChatResponse{Error: msg})
		return
	}

	respondJSON(w, http.StatusOK, api.ChatResponse{Success: true, Response: answer, Model: s.analyst.Model()})
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		respondJSON(w, http.StatusInternalServerError, api.Analysis{Error: "API key not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondJSON(w, http.StatusRequestEntityTooLarge, api.Analysis{Error: "File too large"})
			return
		}
		respondJSON(w, http.StatusBadRequest, api.Analysis{Error: "No file provided"})
		return
	}

	file, header, err := r.FormFile(api.FileField)
	if err != nil {
		// A part without a filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value[api.FileField]; ok {
			respondJSON(w, http.StatusBadRequest, api.Analysis{Error: "Empty filename"})
			return
		}
		respondJSON(w, http.StatusBadRequest, api.Analysis{Error: "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, api.Analysis{Error: "Error reading file: " + err.Error()})
		return
	}
	content := strings.ToValidUTF8(string(data), "")

	analysis, err := s.analyst.AnalyzeFile(r.Context(), header.Filename, content)
	if err != nil {
		logger.L.Error("error in analyze-file endpoint", "file", header.Filename, "error", err)
		msg := "Error analyzing file: " + err.Error()
		if errors.Is(err, llm.ErrEmptyCompletion) {
			msg = "Failed to analyze file"
		}
		respondJSON(w, http.StatusInternalServerError, api.Analysis{Error: msg})
		return
	}

	respondJSON(w, http.StatusOK, api.Analysis{
		Success:   true,
		Analysis:  analysis,
		HasCharts: strings.IndexFunc(content, unicode.IsDigit) >= 0,
		Filename:  header.Filename,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Warn("failed to write response", "error", err)
	}
}
