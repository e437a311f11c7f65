package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest markdown files as they change",
	Long: `Watches the content directory (paths.content, or the directory given) and
ingests every markdown file that is created or written.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{longRunning: "true"},
	RunE:        runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}
	dir := settings.Paths.Content
	if len(args) == 1 {
		dir = args[0]
	}

	retrieval, err := deps.Retrieval(cmd.Context())
	if err != nil {
		return err
	}
	return watch.New(dir, retrieval).Run(cmd.Context())
}
