package domain

import (
	"fmt"
	"time"
)

// Pipeline stages, in execution order.
const (
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageGenerate   = "generate"
	StageIngest     = "ingest"
	StageEnqueue    = "enqueue"
)

// VideoOutcome is the result of processing one video.
type VideoOutcome struct {
	// Video is the path of the source video.
	Video string `json:"video"`

	// AudioPath, TranscriptPath and ContentPath are set as each stage completes.
	AudioPath      string `json:"audio_path,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	ContentPath    string `json:"content_path,omitempty"`

	// Stage is the last stage reached.
	Stage string `json:"stage"`

	// Err is the failure, if any. It is nil for a fully processed video.
	Err error `json:"-"`

	// Duration is the wall time spent on this video.
	Duration time.Duration `json:"duration"`
}

// Succeeded returns true if the video was processed without error.
func (o VideoOutcome) Succeeded() bool {
	return o.Err == nil
}

// PipelineReport summarises a pipeline run.
type PipelineReport struct {
	Outcomes []VideoOutcome `json:"outcomes"`
}

// Total returns the number of videos attempted.
func (r PipelineReport) Total() int {
	return len(r.Outcomes)
}

// Succeeded returns the number of videos processed without error.
func (r PipelineReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in error.
func (r PipelineReport) Failed() []VideoOutcome {
	var failed []VideoOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary returns the one-line result of the run.
func (r PipelineReport) Summary() string {
	return fmt.Sprintf("Processed %d/%d videos successfully", r.Succeeded(), r.Total())
}

// IngestJob asks a worker to ingest one markdown document.
type IngestJob struct {
	Path       string    `json:"path"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
