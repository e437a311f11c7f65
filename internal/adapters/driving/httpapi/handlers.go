package httpapi

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia-labs/vidrag/internal/logger"
)

// Response messages.
const (
	msgRunning       = "Chatbot API is running"
	msgQueryRequired = "Query is required and must be a string"
	msgInternal      = "Internal server error"
)

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatRequest is the body of POST /api/chat. Query is decoded loosely so a
// non-string value can be rejected with a clear message.
type ChatRequest struct {
	Query  any  `json:"query"`
	Stream bool `json:"stream"`
}

// ChatResponse is the non-streaming answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok", Message: msgRunning})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msgQueryRequired})
	}
	query, ok := req.Query.(string)
	if !ok || strings.TrimSpace(query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msgQueryRequired})
	}

	if req.Stream {
		return s.streamAnswer(c, query)
	}

	answer, err := s.chat.Answer(c.UserContext(), query)
	if err != nil {
		logger.Error("Error processing chat request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msgInternal})
	}
	return c.JSON(ChatResponse{Response: answer})
}

// streamAnswer writes fragments as they arrive. Errors after the first
// byte can only end the body early.
func (s *Server) streamAnswer(c *fiber.Ctx, query string) error {
	stream, err := s.chat.AnswerStream(c.UserContext(), query)
	if err != nil {
		logger.Error("Error processing chat request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msgInternal})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer stream.Close()
		for {
			fragment, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				logger.Error("Error streaming answer: %v", err)
				return
			}
			if _, err := w.WriteString(fragment); err != nil {
				return
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
