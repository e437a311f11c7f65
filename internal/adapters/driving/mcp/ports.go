package mcp

import (
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
)

// Ports aggregates the services the MCP server exposes.
type Ports struct {
	// Retrieval answers similarity queries. Required.
	Retrieval driving.RetrievalService

	// Chat answers questions from retrieved content. Without it the ask
	// tool reports an error.
	Chat driving.ChatService

	// Counter reports the number of stored records, if the backend supports it.
	Counter driven.RecordCounter

	// ContentDir holds the generated support pages served as resources.
	ContentDir string

	// Info describes the running configuration.
	Info Info
}

// Info is reported by the stats resource and supplies retrieval defaults.
type Info struct {
	Backend        string  `json:"backend"`
	EmbeddingModel string  `json:"embedding_model"`
	LLMModel       string  `json:"llm_model,omitempty"`
	MatchThreshold float64 `json:"match_threshold"`
	MatchCount     int     `json:"match_count"`
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
