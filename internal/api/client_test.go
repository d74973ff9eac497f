package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/bizanalyst/internal/session"
)

func TestChat_Success(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, PathChat, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ChatResponse{Success: true, Response: "Here's an idea..."})
	}))
	defer srv.Close()

	history := []session.Message{{Role: session.RoleUser, Content: "Idea for a coffee shop", Timestamp: time.Now().UTC()}}
	reply, err := NewClient(srv.URL+"/", time.Second).Chat(context.Background(), "Idea for a coffee shop", history)
	require.NoError(t, err)
	require.Equal(t, "Here's an idea...", reply)
	require.Equal(t, "Idea for a coffee shop", got.Message)
	require.Len(t, got.History, 1)
	require.Equal(t, session.RoleUser, got.History[0].Role)
}

func TestChat_EmptyHistoryIsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), `"history":[]`)
		_ = json.NewEncoder(w).Encode(ChatResponse{Success: true, Response: "ok"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Chat(context.Background(), "hi", nil)
	require.NoError(t, err)
}

func TestChat_APIReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ChatResponse{Success: false, Error: "API key not configured"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Chat(context.Background(), "hi", nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "API key not configured", apiErr.Message)
}

func TestChat_TransportFailures(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url, time.Second).Chat(context.Background(), "hi", nil)
		require.Error(t, err)
		var apiErr *Error
		require.False(t, errors.As(err, &apiErr))
	})

	t.Run("not json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Chat(context.Background(), "hi", nil)
		require.Error(t, err)
		var apiErr *Error
		require.False(t, errors.As(err, &apiErr))
	})
}

func TestAnalyzeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, PathAnalyzeFile, r.URL.Path)
		f, hdr, err := r.FormFile(FileField)
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "sales.csv", hdr.Filename)
		require.Equal(t, "month,revenue\nJan,100\n", string(data))
		_ = json.NewEncoder(w).Encode(Analysis{Success: true, Analysis: "Revenue is flat.", HasCharts: true, Filename: hdr.Filename})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).AnalyzeFile(context.Background(), "sales.csv", strings.NewReader("month,revenue\nJan,100\n"))
	require.NoError(t, err)
	require.Equal(t, "Revenue is flat.", res.Analysis)
	require.True(t, res.HasCharts)
}

func TestAnalyzeFile_APIReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(Analysis{Success: false, Error: "Empty filename"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).AnalyzeFile(context.Background(), "x.txt", strings.NewReader("x"))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Empty filename", apiErr.Error())
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, PathHealth, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","api_key_configured":true,"message":"API is running"}`))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL, time.Second).Health(context.Background())
	require.NoError(t, err)
	require.True(t, h.APIKeyConfigured)
	require.Equal(t, "healthy", h.Status)
}
