package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/vidrag/internal/logger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API",
	Long: `Serves the chat API over HTTP:

  GET  /          health check
  POST /api/chat  {"query": "...", "stream": false}
  GET  /metrics   Prometheus metrics

If the port is taken, the next port is tried once.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{longRunning: "true"},
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (default from server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}
	port := settings.Server.Port
	if servePort > 0 {
		port = servePort
	}

	chat, err := deps.Chat(cmd.Context())
	if err != nil {
		return err
	}

	server := httpapi.New(chat)
	return server.Listen(cmd.Context(), port, func(bound int) {
		logger.Info("server listening on http://localhost:%d", bound)
		cmd.Printf("Server is running on port %d\n", bound)
	})
}
