package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// contextSeparator joins the rendered chunks in the system prompt.
const contextSeparator = "\n\n---\n\n"

// emptyAnswer is returned when the model replies with nothing.
const emptyAnswer = "Sorry, I could not generate a response."

// ChatConfig holds the retrieval and generation parameters for answers.
type ChatConfig struct {
	MatchThreshold  float64
	MatchCount      int
	FallbackMessage string
	Temperature     float64
	MaxTokens       int
}

// ChatConfigFromSettings extracts the answer parameters from app settings.
func ChatConfigFromSettings(s *domain.AppSettings) ChatConfig {
	return ChatConfig{
		MatchThreshold:  s.Retrieval.MatchThreshold,
		MatchCount:      s.Retrieval.MatchCount,
		FallbackMessage: s.Chat.FallbackMessage,
		Temperature:     s.LLM.Temperature,
		MaxTokens:       s.LLM.MaxTokens,
	}
}

// ChatService answers questions using only retrieved support content.
type ChatService struct {
	retrieval driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       ChatConfig
}

// NewChatService creates a new chat service. llm may be nil, in which case
// only questions with no relevant content can be answered.
func NewChatService(
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg ChatConfig,
) *ChatService {
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = domain.DefaultFallbackMessage
	}
	return &ChatService{
		retrieval: retrieval,
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// BuildContext renders results as the context block given to the model.
func BuildContext(results []domain.QueryResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Title: %s\n\nContent: %s", r.Title(), r.Content)
	}
	return strings.Join(parts, contextSeparator)
}

// prepare retrieves context and builds the conversation. It returns nil
// messages when nothing relevant is stored.
func (s *ChatService) prepare(ctx context.Context, query string) ([]driven.ChatMessage, error) {
	logger.Section("Answer")

	results, err := s.retrieval.Retrieve(ctx, query, s.cfg.MatchThreshold, s.cfg.MatchCount)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Debug("No context found for %q, using fallback", query)
		return nil, nil
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	system, err := s.systemPrompt(BuildContext(results))
	if err != nil {
		return nil, err
	}
	logger.Debug("Answering %q with %d context chunks", query, len(results))

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: query},
	}, nil
}

func (s *ChatService) systemPrompt(contextBlock string) (string, error) {
	tmpl, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		return "", fmt.Errorf("loading chat prompt: %w", err)
	}
	// A customised prompt without a placeholder still gets the context.
	if !strings.Contains(tmpl, "%s") {
		return tmpl + "\n\nContext:\n" + contextBlock, nil
	}
	return fmt.Sprintf(tmpl, contextBlock), nil
}

func (s *ChatService) options() driven.ChatOptions {
	return driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
}

// Answer returns a complete answer to query.
func (s *ChatService) Answer(ctx context.Context, query string) (string, error) {
	messages, err := s.prepare(ctx, query)
	if err != nil {
		return "", err
	}
	if messages == nil {
		return s.cfg.FallbackMessage, nil
	}

	answer, err := s.llm.Chat(ctx, messages, s.options())
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return emptyAnswer, nil
	}
	return answer, nil
}

// AnswerStream returns the answer as fragments. The fallback message is
// delivered as a single fragment.
func (s *ChatService) AnswerStream(ctx context.Context, query string) (driven.ChatStream, error) {
	messages, err := s.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		return NewStaticStream(s.cfg.FallbackMessage), nil
	}

	stream, err := s.llm.ChatStream(ctx, messages, s.options())
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	return stream, nil
}

// staticStream yields one fragment and then io.EOF.
type staticStream struct {
	mu   sync.Mutex
	text string
	done bool
}

// NewStaticStream returns a stream that yields text as a single fragment.
func NewStaticStream(text string) driven.ChatStream {
	return &staticStream{text: text}
}

func (s *staticStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func (s *staticStream) Close() error {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return nil
}

// CollectStream drains stream into a single string and closes it.
func CollectStream(stream driven.ChatStream) (string, error) {
	defer stream.Close()

	var sb strings.Builder
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
}
