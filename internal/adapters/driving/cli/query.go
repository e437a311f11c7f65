package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

var (
	queryThreshold float64
	queryCount     int
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Show the stored chunks that best match a question",
	Long: `Embeds the question and prints the matching chunks, most similar first.
Only chunks whose similarity exceeds the threshold are shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity (default from retrieval.match_threshold)")
	queryCmd.Flags().IntVarP(&queryCount, "count", "n", 0, "maximum number of results (default from retrieval.match_count)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	settings, err := deps.Settings()
	if err != nil {
		return err
	}
	threshold := settings.Retrieval.MatchThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = queryThreshold
	}
	count := settings.Retrieval.MatchCount
	if cmd.Flags().Changed("count") {
		count = queryCount
	}

	retrieval, err := deps.Retrieval(cmd.Context())
	if err != nil {
		return err
	}
	results, err := retrieval.Retrieve(cmd.Context(), args[0], threshold, count)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	outputQueryTable(cmd, results)
	return nil
}

func outputQueryJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.QueryResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Title(), r.Similarity)
		if src := r.SourcePath(); src != "" {
			cmd.Printf("      Source: %s #%d\n", src, r.ChunkIndex())
		}
		cmd.Printf("      %s\n", snippet(r.Content, 160))
		cmd.Println()
	}
}

// snippet returns the first line of content, cut to at most n runes.
func snippet(content string, n int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	runes := []rune(line)
	if len(runes) <= n {
		return line
	}
	return string(runes[:n]) + "..."
}
