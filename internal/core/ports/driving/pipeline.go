package driving

import (
	"context"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

// PipelineService turns videos into ingested support pages.
type PipelineService interface {
	// ProcessAll handles every *.mp4 in the videos directory.
	// Per-video failures are recorded in the report, not returned.
	ProcessAll(ctx context.Context) (*domain.PipelineReport, error)

	// ProcessVideo runs every stage for a single video.
	ProcessVideo(ctx context.Context, videoPath string) domain.VideoOutcome
}
