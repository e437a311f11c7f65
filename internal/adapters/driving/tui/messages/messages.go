// Package messages defines Bubbletea message types for the chat TUI.
// An answer arrives as AnswerStarted, then one FragmentReceived per
// streamed piece, then AnswerCompleted or ErrorOccurred.
package messages

import (
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
)

// AnswerStarted carries the open stream for a submitted question.
type AnswerStarted struct {
	Stream driven.ChatStream
}

// FragmentReceived carries the next piece of the answer.
type FragmentReceived struct {
	Text string
}

// AnswerCompleted is sent once the stream is exhausted.
type AnswerCompleted struct{}

// ErrorOccurred is sent when asking or streaming fails.
type ErrorOccurred struct {
	Err error
}
