package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/worker"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Ingest documents published to the NATS queue",
	Long: `Subscribes to the ingestion subject (queue.subject) and ingests every
published document. Several workers can share the subject; each job is
delivered to one of them.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{longRunning: "true"},
	RunE:        runWorker,
}

func init() {
	workerCmd.Flags().IntVarP(&workerCount, "workers", "w", 0, "concurrent ingestions (default from queue.workers)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}
	workers := settings.Queue.Workers
	if workerCount > 0 {
		workers = workerCount
	}

	retrieval, err := deps.Retrieval(cmd.Context())
	if err != nil {
		return err
	}
	queue, err := deps.Queue()
	if err != nil {
		return err
	}

	pool := worker.NewPool(retrieval, workers)
	if err := pool.Run(cmd.Context(), queue, ""); err != nil {
		return err
	}

	stats := pool.Stats()
	cmd.Printf("Ingested %d documents, %d failed\n", stats.Ingested, stats.Failed)
	return nil
}
