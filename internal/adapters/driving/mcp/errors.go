// Package mcp provides an MCP (Model Context Protocol) server adapter for vidrag.
// It lets AI assistants search the support knowledge base and ask questions
// answered from it.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
