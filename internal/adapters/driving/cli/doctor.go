package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/adapters/driven/ai"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity to the configured services",
	Long: `Pings the embedding provider and the language model, then checks that the
vector repository is reachable and reports how many records it holds.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// check is one doctor check.
type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}

	checks := []check{
		{name: "embedding", run: func(ctx context.Context) (string, error) {
			return fmt.Sprintf("%s %s", settings.Embedding.Provider, settings.Embedding.Model),
				ai.ValidateEmbeddingConfig(ctx, &settings.Embedding)
		}},
		{name: "llm", run: func(ctx context.Context) (string, error) {
			return fmt.Sprintf("%s %s", settings.LLM.Provider, settings.LLM.Model),
				ai.ValidateLLMConfig(ctx, &settings.LLM)
		}},
		{name: "repository", run: func(ctx context.Context) (string, error) {
			repo, err := deps.Repository(ctx)
			if err != nil {
				return settings.Storage.Backend.String(), err
			}
			n, err := repo.Count(ctx)
			return fmt.Sprintf("%s, %d records", settings.Storage.Backend, n), err
		}},
	}

	failed := 0
	for _, c := range checks {
		detail, err := c.run(cmd.Context())
		if err != nil {
			failed++
			cmd.Printf("  [FAIL] %-10s %s: %v\n", c.name, detail, err)
			continue
		}
		cmd.Printf("  [ OK ] %-10s %s\n", c.name, detail)
	}

	if failed > 0 {
		return errors.New("some checks failed")
	}
	cmd.Println("All checks passed.")
	return nil
}
