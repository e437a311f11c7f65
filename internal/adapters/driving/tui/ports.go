// Package tui provides an interactive chat terminal user interface for vidrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
)

// Ports aggregates what the TUI needs from the core.
type Ports struct {
	// Chat answers questions. Required.
	Chat driving.ChatService

	// ModelName is shown in the status bar when set.
	ModelName string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
