// Package mcpserver exposes saved chats to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/bizanalyst/internal/history"
	"github.com/comigor/bizanalyst/internal/logger"
)

const (
	ToolListChats = "list_chats"
	ToolGetChat   = "get_chat"
)

type chatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an MCP server with read-only tools over store.
func New(store history.Store, version string) *server.MCPServer {
	s := server.NewMCPServer("bizanalyst", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(ToolListChats,
		mcp.WithDescription("List saved business analysis chats, most recent first"),
	), listChats(store))

	s.AddTool(mcp.NewTool(ToolGetChat,
		mcp.WithDescription("Return the full transcript of a saved chat"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Chat id as returned by list_chats")),
	), getChat(store))

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(store history.Store, version string) error {
	logger.L.Info("starting MCP server on stdio")
	return server.ServeStdio(New(store, version))
}

func listChats(store history.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records := store.ListAll()
		summaries := make([]chatSummary, 0, len(records))
		for _, rec := range records {
			summaries = append(summaries, chatSummary{
				ID:        rec.ID,
				Title:     rec.Title,
				Messages:  len(rec.Messages),
				Timestamp: rec.Timestamp,
			})
		}

		out, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("encode chat list: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func getChat(store history.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["id"].(string)
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("id argument is required"), nil
		}

		rec, err := store.Load(id)
		if errors.Is(err, history.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("chat %s not found", id)), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(Transcript(rec)), nil
	}
}

// Transcript renders rec as plain text, one block per message.
func Transcript(rec history.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", rec.Title)
	fmt.Fprintf(&b, "id: %s\nsaved: %s\n", rec.ID, rec.Timestamp.UTC().Format(time.RFC3339))
	for _, m := range rec.Messages {
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", m.Role, m.Timestamp.UTC().Format(time.RFC3339), m.Content)
	}
	return b.String()
}
