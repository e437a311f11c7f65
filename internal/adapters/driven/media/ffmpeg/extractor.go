// Package ffmpeg extracts audio tracks by running the ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.AudioExtractor = (*Extractor)(nil)

// Defaults.
const (
	DefaultBinary  = "ffmpeg"
	DefaultFormat  = "flac"
	DefaultQuality = "5"
)

// maxStderr bounds how much ffmpeg output is kept for error messages.
const maxStderr = 4096

// Config holds extractor settings.
type Config struct {
	// Binary is the ffmpeg executable name or path.
	Binary string

	// Format is the audio codec passed to -acodec.
	Format string

	// Quality is passed to -q:a.
	Quality string
}

// Extractor runs ffmpeg once per video.
type Extractor struct {
	binary  string
	format  string
	quality string
}

// New creates an extractor.
func New(cfg Config) *Extractor {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Quality == "" {
		cfg.Quality = DefaultQuality
	}
	return &Extractor{binary: cfg.Binary, format: cfg.Format, quality: cfg.Quality}
}

// Format returns the audio codec, which is also the output file extension.
func (e *Extractor) Format() string {
	return e.format
}

// Args returns the ffmpeg arguments for one extraction.
func (e *Extractor) Args(videoPath, audioPath string) []string {
	return []string{
		"-i", videoPath,
		"-vn",
		"-acodec", e.format,
		"-q:a", e.quality,
		"-y",
		audioPath,
	}
}

// Extract writes the audio of videoPath to audioPath.
func (e *Extractor) Extract(ctx context.Context, videoPath, audioPath string) error {
	if err := os.MkdirAll(filepath.Dir(audioPath), 0o755); err != nil {
		return fmt.Errorf("ffmpeg: create output directory: %w", err)
	}

	logger.Info("Extracting audio from %s to %s", videoPath, audioPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, e.Args(videoPath, audioPath)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := stderr.String()
		if len(out) > maxStderr {
			out = out[len(out)-maxStderr:]
		}
		logger.Debug("ffmpeg stderr: %s", out)
		return fmt.Errorf("ffmpeg: extract %s: %w: %s", videoPath, err, strings.TrimSpace(lastLine(out)))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
