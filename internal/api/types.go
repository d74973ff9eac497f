package api

import "github.com/comigor/bizanalyst/internal/session"

// Endpoint paths of the analysis backend.
const (
	PathHealth      = "/api/health"
	PathChat        = "/api/chat"
	PathAnalyzeFile = "/api/analyze-file"

	// FileField is the multipart field carrying an uploaded file.
	FileField = "file"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string            `json:"message"`
	History []session.Message `json:"history"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Model    string `json:"model,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Analysis is the body returned by POST /api/analyze-file.
type Analysis struct {
	Success   bool   `json:"success"`
	Analysis  string `json:"analysis,omitempty"`
	HasCharts bool   `json:"has_charts"`
	Filename  string `json:"filename,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health is the body returned by GET /api/health.
type Health struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	Message          string `json:"message,omitempty"`
}
