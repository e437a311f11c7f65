package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

func TestPipelineCmd_All(t *testing.T) {
	c := setupTestDeps(t)
	c.pipeline = &mockPipeline{report: &domain.PipelineReport{Outcomes: []domain.VideoOutcome{
		{Video: "videos/a.mp4", ContentPath: "content/a.md", Stage: domain.StageIngest, Duration: 2 * time.Second},
		{Video: "videos/b.mp4", ContentPath: "content/b.md", Stage: domain.StageIngest},
	}}}

	out, err := execute(t, "", "pipeline")

	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] videos/a.mp4 -> content/a.md (2s)")
	assert.Contains(t, out, "Processed 2/2 videos successfully")
}

func TestPipelineCmd_ReportsFailures(t *testing.T) {
	c := setupTestDeps(t)
	c.pipeline = &mockPipeline{report: &domain.PipelineReport{Outcomes: []domain.VideoOutcome{
		{Video: "videos/a.mp4", ContentPath: "content/a.md", Stage: domain.StageIngest},
		{Video: "videos/b.mp4", Stage: domain.StageTranscribe, Err: errors.New("whisper: 429")},
	}}}

	out, err := execute(t, "", "pipeline")

	require.Error(t, err)
	assert.EqualError(t, err, "Processed 1/2 videos successfully")
	assert.Contains(t, out, "[FAIL] videos/b.mp4 at transcribe: whisper: 429")
}

func TestPipelineCmd_SingleVideo(t *testing.T) {
	c := setupTestDeps(t)
	pipeline := &mockPipeline{}
	c.pipeline = pipeline

	out, err := execute(t, "", "pipeline", "videos/intro.mp4")

	require.NoError(t, err)
	assert.Equal(t, []string{"videos/intro.mp4"}, pipeline.videos)
	assert.Contains(t, out, "Processed 1/1 videos successfully")
}

func TestPipelineCmd_ScanFailure(t *testing.T) {
	c := setupTestDeps(t)
	c.pipeline = &mockPipeline{err: errors.New("open videos: no such file or directory")}

	_, err := execute(t, "", "pipeline")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline failed")
}

func TestPipelineCmd_IsLongRunning(t *testing.T) {
	for _, cmd := range []string{"pipeline", "serve", "worker", "watch"} {
		found, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err)
		assert.Contains(t, found.Annotations, longRunning, cmd)
	}
}
