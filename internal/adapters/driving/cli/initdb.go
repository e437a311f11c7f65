package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector repository",
	Long: `Creates the table, collection or index used by the configured storage
backend. Safe to run more than once.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}
	repo, err := deps.Repository(cmd.Context())
	if err != nil {
		return err
	}
	if err := repo.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	cmd.Printf("Initialized %s repository (%d dimensions)\n", settings.Storage.Backend, settings.Embedding.Dimensions)
	return nil
}
