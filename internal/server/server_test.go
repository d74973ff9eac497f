package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/llm"
	"github.com/comigor/bizanalyst/internal/session"
)

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[0].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

const maxUpload = 5 * 1024 * 1024

func newTestServer(t *testing.T, m *mockLLM) *httptest.Server {
	t.Helper()
	var srv *Server
	if m == nil {
		srv = New(nil, maxUpload, "BIZANALYST_LLM_API_KEY")
	} else {
		srv = New(llm.NewAnalyst(m, "gpt-4o-mini", ""), maxUpload, "BIZANALYST_LLM_API_KEY")
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	h, err := api.NewClient(newTestServer(t, &mockLLM{}).URL, time.Second).Health(ctx)
	require.NoError(t, err)
	require.Equal(t, api.Health{Status: "healthy", APIKeyConfigured: true, Message: "API is running"}, h)

	h, err = api.NewClient(newTestServer(t, nil).URL, time.Second).Health(ctx)
	require.NoError(t, err)
	require.False(t, h.APIKeyConfigured)
	require.Equal(t, "API key not configured", h.Message)
}

func TestChat_WithClient(t *testing.T) {
	m := &mockLLM{calls: []openai.ChatCompletionResponse{reply("## Idea\nA late-night coffee bar")}}
	client := api.NewClient(newTestServer(t, m).URL, time.Second)

	history := []session.Message{
		{Role: session.RoleUser, Content: "I want to open a shop", Timestamp: time.Now()},
		{Role: session.RoleAssistant, Content: "What kind?"},
		{Role: session.RoleUser, Content: "coffee"},
	}
	out, err := client.Chat(context.Background(), "coffee", history)
	require.NoError(t, err)
	require.Equal(t, "## Idea\nA late-night coffee bar", out)

	prompt := m.requests[0].Messages[1].Content
	require.Contains(t, prompt, "User: I want to open a shop\nAssistant: What kind?\nUser: coffee\n")
	require.Contains(t, prompt, "User's new question: coffee")
}

func TestChat_ResponseCarriesModel(t *testing.T) {
	m := &mockLLM{calls: []openai.ChatCompletionResponse{reply("hi")}}
	ts := newTestServer(t, m)

	resp, err := http.Post(ts.URL+api.PathChat, "application/json", strings.NewReader(`{"message":"hello","history":[{"role":"user","content":"hello","timestamp":"yesterday"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body api.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "gpt-4o-mini", body.Model)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestChat_Failures(t *testing.T) {
	tests := []struct {
		name       string
		llm        *mockLLM
		body       string
		wantStatus int
		wantError  string
	}{
		{"no api key", nil, `{"message":"hi"}`, http.StatusInternalServerError, "API key not configured. Please set BIZANALYST_LLM_API_KEY environment variable."},
		{"empty message", &mockLLM{}, `{"message":"","history":[]}`, http.StatusBadRequest, "No message provided"},
		{"bad json", &mockLLM{}, `{`, http.StatusBadRequest, "Invalid request body"},
		{"llm error", &mockLLM{err: errors.New("quota exceeded")}, `{"message":"hi"}`, http.StatusInternalServerError, "Error generating response: llm completion: quota exceeded"},
		{"empty completion", &mockLLM{calls: []openai.ChatCompletionResponse{{}}}, `{"message":"hi"}`, http.StatusInternalServerError, "No response generated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.llm)
			resp, err := http.Post(ts.URL+api.PathChat, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body api.ChatResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.False(t, body.Success)
			require.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestChat_ClientSeesAPIError(t *testing.T) {
	client := api.NewClient(newTestServer(t, nil).URL, time.Second)

	_, err := client.Chat(context.Background(), "hi", nil)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Contains(t, apiErr.Message, "API key not configured")
}

func TestAnalyzeFile_WithClient(t *testing.T) {
	m := &mockLLM{calls: []openai.ChatCompletionResponse{reply("Revenue doubled"), reply("Looks fine")}}
	client := api.NewClient(newTestServer(t, m).URL, time.Second)
	ctx := context.Background()

	a, err := client.AnalyzeFile(ctx, "sales.csv", strings.NewReader("month,revenue\nJan,10\nFeb,20\n"))
	require.NoError(t, err)
	require.True(t, a.Success)
	require.True(t, a.HasCharts)
	require.Equal(t, "Revenue doubled", a.Analysis)
	require.Equal(t, "sales.csv", a.Filename)
	require.Contains(t, m.requests[0].Messages[1].Content, "Filename: sales.csv\nFile Content:\nmonth,revenue")

	a, err = client.AnalyzeFile(ctx, "notes.txt", bytes.NewReader([]byte("no numbers \xff here")))
	require.NoError(t, err)
	require.False(t, a.HasCharts)
	require.Contains(t, m.requests[1].Messages[1].Content, "no numbers  here")
}

func postMultipart(t *testing.T, url string, write func(mw *multipart.Writer)) (int, api.Analysis) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	write(mw)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+api.PathAnalyzeFile, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body api.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAnalyzeFile_Failures(t *testing.T) {
	ts := newTestServer(t, &mockLLM{})

	status, body := postMultipart(t, ts.URL, func(mw *multipart.Writer) {
		require.NoError(t, mw.WriteField("other", "x"))
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "No file provided", body.Error)

	status, body = postMultipart(t, ts.URL, func(mw *multipart.Writer) {
		fw, err := mw.CreateFormFile(api.FileField, "")
		require.NoError(t, err)
		_, err = fw.Write([]byte("data"))
		require.NoError(t, err)
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Empty filename", body.Error)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(api.FileField, "huge.csv")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("1"), maxUpload+multipartOverhead))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, api.PathAnalyzeFile, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	New(llm.NewAnalyst(&mockLLM{}, "m", ""), maxUpload, "KEY").Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	resp, err := http.Post(ts.URL+api.PathAnalyzeFile, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	noKey := newTestServer(t, nil)
	status, body = postMultipart(t, noKey.URL, func(mw *multipart.Writer) {
		fw, err := mw.CreateFormFile(api.FileField, "a.csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("a,1"))
	})
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "API key not configured", body.Error)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &mockLLM{})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+api.PathChat, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
