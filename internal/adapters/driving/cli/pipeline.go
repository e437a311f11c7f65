package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

var pipelineAsync bool

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [video.mp4]",
	Short: "Turn support videos into ingested support pages",
	Long: `Processes every *.mp4 in paths.videos, or the single video given:

  1. extract the audio track with ffmpeg into paths.audio
  2. transcribe it into paths.transcripts
  3. generate a markdown support page into paths.content
  4. ingest the page, or publish it to the NATS queue with --async

A failing video is reported and the run continues with the next one.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{longRunning: "true"},
	RunE:        runPipeline,
}

func init() {
	pipelineCmd.Flags().BoolVar(&pipelineAsync, "async", false, "enqueue pages for the worker instead of ingesting them")
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	pipeline, err := deps.Pipeline(cmd.Context(), pipelineAsync)
	if err != nil {
		return err
	}

	var report *domain.PipelineReport
	if len(args) == 1 {
		report = &domain.PipelineReport{
			Outcomes: []domain.VideoOutcome{pipeline.ProcessVideo(cmd.Context(), args[0])},
		}
	} else {
		report, err = pipeline.ProcessAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("pipeline failed: %w", err)
		}
	}

	printReport(cmd, report)
	if len(report.Failed()) > 0 {
		return errors.New(report.Summary())
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.PipelineReport) {
	for _, o := range report.Outcomes {
		if o.Succeeded() {
			cmd.Printf("  [ OK ] %s -> %s (%s)\n", o.Video, o.ContentPath, o.Duration.Round(time.Millisecond))
			continue
		}
		cmd.Printf("  [FAIL] %s at %s: %v\n", o.Video, o.Stage, o.Err)
	}
	cmd.Println(report.Summary())
}
