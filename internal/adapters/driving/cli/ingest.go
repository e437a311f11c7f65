package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vidrag/internal/logger"
)

var ingestParallel int

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest markdown documents",
	Long: `Chunks, embeds and stores markdown documents. Directories are expanded to
the *.md files they contain. Re-ingesting a document replaces its records.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestParallel, "parallel", "j", 4, "documents ingested concurrently")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := expandDocuments(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No markdown documents found.")
		return nil
	}

	retrieval, err := deps.Retrieval(cmd.Context())
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(ingestParallel, 1))
	for _, path := range paths {
		g.Go(func() error {
			err := retrieval.Ingest(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("%v", err)
				errs = append(errs, err)
				return nil
			}
			cmd.Printf("ingested %s\n", path)
			return nil
		})
	}
	_ = g.Wait()

	cmd.Printf("Ingested %d/%d documents\n", len(paths)-len(errs), len(paths))
	return errors.Join(errs...)
}

// expandDocuments replaces each directory in args with its *.md files,
// sorted by name. Files are kept as given.
func expandDocuments(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
