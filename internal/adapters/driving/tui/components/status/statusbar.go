// Package status provides the status bar for the chat TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/styles"
)

// State represents what the chat is doing.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Bar displays the chat state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	model   string
	answers int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - s.styles.StatusBar.GetHorizontalFrameSize() - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Thinking...")
	case StateStreaming:
		return s.styles.Muted.Render("Answering...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateReady:
	}

	label := "Ready"
	if s.model != "" {
		label = s.model
	}
	if s.answers > 0 {
		label = fmt.Sprintf("%s | %d answered", label, s.answers)
	}
	return s.styles.Muted.Render(label)
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the error message shown in StateError.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetModel sets the model name shown while idle.
func (s *Bar) SetModel(model string) {
	s.model = model
}

// IncAnswers counts a completed answer.
func (s *Bar) IncAnswers() {
	s.answers++
}

// Answers returns the number of completed answers.
func (s *Bar) Answers() int {
	return s.answers
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to its idle state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.answers = 0
}
