package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// SupportPageGenerator rewrites a video transcript as a markdown support page.
type SupportPageGenerator struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	temperature float64
}

// NewSupportPageGenerator creates a generator.
func NewSupportPageGenerator(llm driven.LLMService, prompts driven.PromptStore, temperature float64) *SupportPageGenerator {
	return &SupportPageGenerator{
		llm:         llm,
		prompts:     prompts,
		temperature: temperature,
	}
}

// Generate returns the markdown page for the transcript of videoID.
// An empty transcript is rejected without calling the model.
func (g *SupportPageGenerator) Generate(ctx context.Context, videoID, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("%w: transcript for %s is empty", domain.ErrValidation, videoID)
	}

	tmpl, err := g.prompts.Load(driven.PromptSupportPage)
	if err != nil {
		return "", fmt.Errorf("loading support page prompt: %w", err)
	}

	system := fmt.Sprintf(tmpl, videoID, transcript)
	if strings.Count(tmpl, "%s") < 2 {
		system = tmpl + "\n\nVideo ID: " + videoID + "\n\nTranscript:\n" + transcript
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf("Write the support page for video %s.", videoID)},
	}

	page, err := g.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: g.temperature})
	if err != nil {
		return "", fmt.Errorf("generating support page: %w", err)
	}
	page = strings.TrimSpace(page)
	if page == "" {
		return "", fmt.Errorf("generating support page: model returned no content for %s", videoID)
	}
	return page + "\n", nil
}
