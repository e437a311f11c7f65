package driven

import "context"

// AudioExtractor pulls the audio track out of a video file.
type AudioExtractor interface {
	// Extract writes the audio of videoPath to audioPath, overwriting it.
	Extract(ctx context.Context, videoPath, audioPath string) error
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	// Transcribe returns the transcript of the audio file.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
