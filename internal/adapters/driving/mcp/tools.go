package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or text to find support content for"`
	// Threshold is nil when the client leaves it out, so 0 stays a valid request.
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity, inclusive (default from settings)"`
	Count     int      `json:"count,omitempty" jsonschema:"maximum number of results (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ResultOutput `json:"results"`
	Count   int            `json:"count"`
}

// ResultOutput is one ranked chunk.
type ResultOutput struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Source     string  `json:"source,omitempty"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the user's support question"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer string `json:"answer"`
}

// errChatUnavailable is returned by ask when no chat service is wired.
var errChatUnavailable = errors.New("mcp: answering is not configured")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find support content chunks most similar to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a support question using only the stored support content",
	}, s.handleAsk)
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	threshold := s.ports.Info.MatchThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	count := input.Count
	if count <= 0 {
		count = s.ports.Info.MatchCount
	}

	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, threshold, count)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]ResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = ResultOutput{
			ID:         r.ID,
			Title:      r.Title(),
			Source:     r.SourcePath(),
			Similarity: r.Similarity,
			Content:    r.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errChatUnavailable
	}
	answer, err := s.ports.Chat.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer}, nil
}
