package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/session"
)

func seededStore(t *testing.T) (*history.KVStore, string) {
	t.Helper()
	store := history.NewKVStore(history.NewMemoryKV())

	s := session.New()
	_, err := s.Append(session.RoleUser, "Market size for vegan bakeries?")
	require.NoError(t, err)
	_, err = s.Append(session.RoleAssistant, "**Growing** fast")
	require.NoError(t, err)

	rec, ok := store.Save(s)
	require.True(t, ok)
	return store, rec.ID
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func TestListChats(t *testing.T) {
	store, id := seededStore(t)

	res, err := listChats(store)(context.Background(), callTool(ToolListChats, nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	var got []chatSummary
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &got))
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].ID)
	require.Equal(t, "Market size for vegan bakeries?", got[0].Title)
	require.Equal(t, 2, got[0].Messages)
}

func TestListChats_Empty(t *testing.T) {
	store := history.NewKVStore(history.NewMemoryKV())

	res, err := listChats(store)(context.Background(), callTool(ToolListChats, nil))
	require.NoError(t, err)
	require.Equal(t, "[]", res.Content[0].(mcp.TextContent).Text)
}

func TestGetChat(t *testing.T) {
	store, id := seededStore(t)
	handler := getChat(store)

	res, err := handler(context.Background(), callTool(ToolGetChat, map[string]any{"id": id}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := res.Content[0].(mcp.TextContent).Text
	require.Contains(t, text, "# Market size for vegan bakeries?")
	require.Contains(t, text, "[user]")
	require.Contains(t, text, "[assistant]")
	require.Contains(t, text, "**Growing** fast")

	res, err = handler(context.Background(), callTool(ToolGetChat, map[string]any{"id": "chat_nope"}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, res.Content[0].(mcp.TextContent).Text, "not found")

	res, err = handler(context.Background(), callTool(ToolGetChat, map[string]any{}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestTranscript(t *testing.T) {
	ts := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	rec := history.Record{
		ID:    "chat_x",
		Title: "Pricing",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "How to price?", Timestamp: ts},
		},
		Timestamp: ts,
	}

	require.Equal(t,
		"# Pricing\nid: chat_x\nsaved: 2026-05-01T09:30:00Z\n\n[user] 2026-05-01T09:30:00Z\nHow to price?\n",
		Transcript(rec))
}

func TestNew_RegistersTools(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, "test")
	require.NotNil(t, s)

	res := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.Contains(t, string(out), ToolListChats)
	require.Contains(t, string(out), ToolGetChat)
}
