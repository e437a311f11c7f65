package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored records",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, _ []string) error {
	repo, err := deps.Repository(cmd.Context())
	if err != nil {
		return err
	}
	n, err := repo.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	cmd.Printf("%d records\n", n)
	return nil
}
