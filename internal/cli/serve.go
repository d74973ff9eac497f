package cli

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/comigor/bizanalyst/internal/api"
	"github.com/comigor/bizanalyst/internal/config"
	"github.com/comigor/bizanalyst/internal/llm"
	"github.com/comigor/bizanalyst/internal/logger"
	"github.com/comigor/bizanalyst/internal/mcpserver"
	"github.com/comigor/bizanalyst/internal/server"
	"github.com/comigor/bizanalyst/internal/view"
)

const apiKeyEnv = config.EnvPrefix + "_LLM_API_KEY"

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var analyst server.Analyst
			if a.cfg.LLM.APIKeyConfigured() {
				client := llm.NewClient(a.cfg.LLM)
				analyst = llm.NewAnalyst(client, a.cfg.LLM.Model, a.cfg.LLM.SystemPrompt)
				logger.L.Info("LLM configured", "provider", a.cfg.LLM.Provider, "model", a.cfg.LLM.Model)
			} else {
				logger.L.Warn("LLM API key not set; chat and analysis requests will fail", "env", apiKeyEnv)
			}

			addr := net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port)
			srv := server.New(analyst, a.cfg.Chat.MaxUploadBytes, apiKeyEnv)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable and configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(a.cfg.API.BaseURL, a.cfg.API.Timeout)
			h, err := client.Health(cmd.Context())
			view.NewTerminalView(cmd.OutOrStdout()).Health(h, err)
			if err != nil {
				return fmt.Errorf("backend %s unreachable: %w", client.BaseURL(), err)
			}
			return nil
		},
	}
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve saved chats to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := a.openStore()
			defer closeStore()
			return mcpserver.Serve(store, Version)
		},
	}
}
