package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/core/services"
)

// mockChat implements driving.ChatService for testing.
type mockChat struct {
	answer  string
	err     error
	queries []string
}

func (m *mockChat) Answer(_ context.Context, query string) (string, error) {
	m.queries = append(m.queries, query)
	return m.answer, m.err
}

func (m *mockChat) AnswerStream(_ context.Context, query string) (driven.ChatStream, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return &fragmentStream{fragments: []string{m.answer[:len(m.answer)/2], m.answer[len(m.answer)/2:]}}, nil
}

type fragmentStream struct {
	fragments []string
	closed    bool
}

func (s *fragmentStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *fragmentStream) Close() error {
	s.closed = true
	return nil
}

func newTestApp(t *testing.T, chat *mockChat) *App {
	t.Helper()
	app, err := NewApp(&Ports{Chat: chat, ModelName: "gpt-4o"})
	require.NoError(t, err)
	app.SetDimensions(80, 24)
	return app
}

func typeText(app *App, text string) {
	for _, r := range text {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// drain runs cmd and feeds every resulting chat message back into the app
// until the answer settles.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 50; i++ {
		msg := cmd()
		switch m := msg.(type) {
		case tea.BatchMsg:
			var next tea.Cmd
			for _, c := range m {
				if c == nil {
					continue
				}
				if sub := c(); isChatMsg(sub) {
					_, next = app.Update(sub)
				}
			}
			cmd = next
		default:
			if !isChatMsg(msg) {
				return
			}
			_, cmd = app.Update(msg)
		}
	}
}

func isChatMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case messages.AnswerStarted, messages.FragmentReceived, messages.AnswerCompleted, messages.ErrorOccurred:
		return true
	}
	return false
}

func TestNewApp_MissingChat(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingChatService)
	assert.Nil(t, app)

	_, err = NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingChatService)
}

func TestApp_ViewBeforeReady(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &mockChat{}})
	require.NoError(t, err)

	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &mockChat{}})
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.True(t, app.Ready())
	assert.Equal(t, 24, app.viewport.Height)
	view := app.View()
	assert.Contains(t, view, "vidrag chat")
	assert.Contains(t, view, "gpt-4o")
}

func TestApp_SendStreamsAnswer(t *testing.T) {
	chat := &mockChat{answer: "Use the export menu."}
	app := newTestApp(t, chat)

	typeText(app, "how do I export?")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.True(t, app.Pending())
	assert.Equal(t, status.StateThinking, app.Status())
	assert.Empty(t, app.input.Value())

	drain(t, app, cmd)

	assert.Equal(t, []string{"how do I export?"}, chat.queries)
	assert.False(t, app.Pending())
	assert.Equal(t, status.StateReady, app.Status())
	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "how do I export?"},
		{Role: RoleAssistant, Text: "Use the export menu."},
	}, app.Transcript())
	assert.Contains(t, app.View(), "1 answered")
}

func TestApp_FragmentsAppendInOrder(t *testing.T) {
	app := newTestApp(t, &mockChat{})
	typeText(app, "q")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	stream := services.NewStaticStream("ignored")
	app.Update(messages.AnswerStarted{Stream: stream})
	assert.Equal(t, status.StateStreaming, app.Status())

	app.Update(messages.FragmentReceived{Text: "Hello, "})
	app.Update(messages.FragmentReceived{Text: "world"})
	app.Update(messages.AnswerCompleted{})

	turns := app.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, "Hello, world", turns[1].Text)
	assert.Nil(t, app.stream)
}

func TestApp_AskFailure(t *testing.T) {
	chat := &mockChat{err: errors.New("llm unavailable")}
	app := newTestApp(t, chat)

	typeText(app, "anything")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, app, cmd)

	assert.False(t, app.Pending())
	assert.Equal(t, status.StateError, app.Status())
	turns := app.Transcript()
	require.Len(t, turns, 2)
	assert.EqualError(t, turns[1].Err, "llm unavailable")
	assert.Contains(t, app.View(), "llm unavailable")
}

func TestApp_StreamInterrupted(t *testing.T) {
	app := newTestApp(t, &mockChat{})
	typeText(app, "q")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	stream := &fragmentStream{}
	app.Update(messages.AnswerStarted{Stream: stream})
	app.Update(messages.FragmentReceived{Text: "partial"})
	app.Update(messages.ErrorOccurred{Err: errors.New("connection reset")})

	assert.True(t, stream.closed)
	turns := app.Transcript()
	assert.Equal(t, "partial", turns[1].Text)
	assert.Error(t, turns[1].Err)
	assert.Contains(t, app.View(), "(answer interrupted)")
}

func TestApp_SendIgnored(t *testing.T) {
	t.Run("blank input", func(t *testing.T) {
		chat := &mockChat{answer: "x"}
		app := newTestApp(t, chat)
		typeText(app, "   ")

		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Nil(t, cmd)
		assert.Empty(t, app.Transcript())
	})

	t.Run("answer in flight", func(t *testing.T) {
		chat := &mockChat{answer: "x"}
		app := newTestApp(t, chat)
		typeText(app, "first")
		app.Update(tea.KeyMsg{Type: tea.KeyEnter})

		typeText(app, "second")
		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Nil(t, cmd)
		assert.Len(t, app.Transcript(), 2)
		assert.Equal(t, "second", app.input.Value())
	})
}

func TestApp_Clear(t *testing.T) {
	app := newTestApp(t, &mockChat{answer: "ok"})
	typeText(app, "hi")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, app, cmd)
	require.Len(t, app.Transcript(), 2)

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Empty(t, app.Transcript())
	assert.Contains(t, app.View(), "Ask anything")
}

func TestApp_QuitClosesStream(t *testing.T) {
	app := newTestApp(t, &mockChat{})
	stream := &fragmentStream{}
	app.Update(messages.AnswerStarted{Stream: stream})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, stream.closed)
}

func TestApp_QKeyTypesIntoInput(t *testing.T) {
	app := newTestApp(t, &mockChat{})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.Equal(t, "q", app.input.Value())
}
