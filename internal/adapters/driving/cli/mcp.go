package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the retrieve and ask tools, the vidrag://stats resource
and the generated support pages as vidrag://pages/<name> resources.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants. Use --port
to serve streamable HTTP instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  vidrag mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  vidrag mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "vidrag": {
        "command": "/path/to/vidrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports, err := mcpPorts(cmd)
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}

// mcpPorts wires the MCP server to the container's services.
func mcpPorts(cmd *cobra.Command) (*mcp.Ports, error) {
	settings, err := deps.Settings()
	if err != nil {
		return nil, err
	}
	retrieval, err := deps.Retrieval(cmd.Context())
	if err != nil {
		return nil, err
	}
	repo, err := deps.Repository(cmd.Context())
	if err != nil {
		return nil, err
	}

	ports := &mcp.Ports{
		Retrieval:  retrieval,
		Counter:    repo,
		ContentDir: settings.Paths.Content,
		Info: mcp.Info{
			Backend:        settings.Storage.Backend.String(),
			EmbeddingModel: settings.Embedding.Model,
			MatchThreshold: settings.Retrieval.MatchThreshold,
			MatchCount:     settings.Retrieval.MatchCount,
		},
	}
	if chat, err := deps.Chat(cmd.Context()); err == nil {
		ports.Chat = chat
		ports.Info.LLMModel = settings.LLM.Model
	}
	return ports, nil
}
