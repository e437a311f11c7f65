// Package whisper transcribes audio with the OpenAI transcription API.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// Defaults.
const (
	DefaultModel   = openai.Whisper1
	DefaultTimeout = 10 * time.Minute
)

// Config holds transcriber settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Transcriber uploads audio files for transcription.
type Transcriber struct {
	client *openai.Client
	model  string
}

// New creates a transcriber.
func New(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("whisper: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &Transcriber{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Transcribe returns the transcript text of audioPath.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("whisper: transcribe %s: %w", audioPath, err)
	}
	return resp.Text, nil
}
