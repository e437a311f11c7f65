package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// videoExt is the extension of the videos picked up by ProcessAll.
const videoExt = ".mp4"

// PipelineService turns each video into an ingested support page:
// extract audio, transcribe, generate markdown, ingest.
type PipelineService struct {
	extractor   driven.AudioExtractor
	transcriber driven.Transcriber
	generator   *SupportPageGenerator
	retrieval   driving.RetrievalService
	queue       driven.IngestQueue

	paths       domain.PathSettings
	audioFormat string
	now         func() time.Time
}

// NewPipelineService creates a new pipeline service.
func NewPipelineService(
	extractor driven.AudioExtractor,
	transcriber driven.Transcriber,
	generator *SupportPageGenerator,
	retrieval driving.RetrievalService,
	paths domain.PathSettings,
	audioFormat string,
) *PipelineService {
	if audioFormat == "" {
		audioFormat = "flac"
	}
	return &PipelineService{
		extractor:   extractor,
		transcriber: transcriber,
		generator:   generator,
		retrieval:   retrieval,
		paths:       paths,
		audioFormat: audioFormat,
		now:         time.Now,
	}
}

// SetQueue makes the final stage publish an ingestion job instead of
// ingesting in process.
func (p *PipelineService) SetQueue(queue driven.IngestQueue) {
	p.queue = queue
}

// outputPath maps input to dir/<base name>.<ext>.
func outputPath(input, dir, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"."+ext)
}

// ProcessAll processes every video in the videos directory in name order.
// A failing video is logged and recorded; the run continues with the next one.
func (p *PipelineService) ProcessAll(ctx context.Context) (*domain.PipelineReport, error) {
	entries, err := os.ReadDir(p.paths.Videos)
	if err != nil {
		return nil, fmt.Errorf("reading videos directory: %w", err)
	}

	var videos []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), videoExt) {
			videos = append(videos, filepath.Join(p.paths.Videos, e.Name()))
		}
	}
	sort.Strings(videos)
	logger.Info("Found %d videos in %s", len(videos), p.paths.Videos)

	report := &domain.PipelineReport{Outcomes: make([]domain.VideoOutcome, 0, len(videos))}
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := p.ProcessVideo(ctx, video)
		if outcome.Err != nil {
			logger.Error("Failed to process %s at %s stage: %v", video, outcome.Stage, outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.Info("%s", report.Summary())
	return report, nil
}

// ProcessVideo runs every stage for one video and reports how far it got.
func (p *PipelineService) ProcessVideo(ctx context.Context, videoPath string) domain.VideoOutcome {
	start := p.now()
	outcome := domain.VideoOutcome{Video: videoPath}
	fail := func(stage string, err error) domain.VideoOutcome {
		outcome.Stage = stage
		outcome.Err = fmt.Errorf("%s: %w", stage, err)
		outcome.Duration = p.now().Sub(start)
		return outcome
	}

	logger.Section("Process " + videoPath)

	audioPath := outputPath(videoPath, p.paths.Audio, p.audioFormat)
	if err := p.extractor.Extract(ctx, videoPath, audioPath); err != nil {
		return fail(domain.StageExtract, err)
	}
	outcome.AudioPath = audioPath
	logger.Info("Extracted audio: %s", audioPath)

	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return fail(domain.StageTranscribe, err)
	}
	transcriptPath := outputPath(videoPath, p.paths.Transcripts, "txt")
	if err := writeOutput(transcriptPath, transcript); err != nil {
		return fail(domain.StageTranscribe, err)
	}
	outcome.TranscriptPath = transcriptPath
	logger.Info("Transcribed: %s", transcriptPath)

	videoID := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	page, err := p.generator.Generate(ctx, videoID, transcript)
	if err != nil {
		return fail(domain.StageGenerate, err)
	}
	contentPath := domain.CanonicalPath(outputPath(videoPath, p.paths.Content, "md"))
	if err := writeOutput(contentPath, page); err != nil {
		return fail(domain.StageGenerate, err)
	}
	outcome.ContentPath = contentPath
	logger.Info("Support page created: %s", contentPath)

	if p.queue != nil {
		if err := p.queue.Enqueue(ctx, domain.IngestJob{Path: contentPath, EnqueuedAt: p.now()}); err != nil {
			return fail(domain.StageEnqueue, err)
		}
		outcome.Stage = domain.StageEnqueue
		logger.Info("Queued for ingestion: %s", contentPath)
	} else {
		if err := p.retrieval.Ingest(ctx, contentPath); err != nil {
			return fail(domain.StageIngest, err)
		}
		outcome.Stage = domain.StageIngest
	}

	outcome.Duration = p.now().Sub(start)
	return outcome
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
