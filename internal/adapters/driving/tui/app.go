package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// chromeHeight is the number of rows taken by the title, input and status bar.
const chromeHeight = 6

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the transcript.
type Turn struct {
	Role Role
	Text string
	Err  error
}

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	input    *input.ChatInput
	viewport viewport.Model
	spinner  spinner.Model
	status   *status.Bar

	transcript []Turn

	// stream is the answer currently being received, if any.
	stream  driven.ChatStream
	pending bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat TUI with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	bar := status.NewBar(s, km)
	bar.SetModel(ports.ModelName)

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keys:     km,
		input:    input.NewChatInput(s),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		status:   bar,
	}, nil
}

// WithContext sets the context used for chat requests.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.input.Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		if !a.pending {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.refresh()
		return a, cmd

	case messages.AnswerStarted:
		a.stream = msg.Stream
		a.status.SetState(status.StateStreaming)
		return a, a.recv(msg.Stream)

	case messages.FragmentReceived:
		a.appendToAnswer(msg.Text)
		return a, a.recv(a.stream)

	case messages.AnswerCompleted:
		a.finish(nil)
		a.status.IncAnswers()
		a.status.SetState(status.StateReady)
		return a, nil

	case messages.ErrorOccurred:
		logger.Debug("chat tui: %v", msg.Err)
		a.finish(msg.Err)
		a.status.SetState(status.StateError)
		a.status.SetMessage(msg.Err.Error())
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.closeStream()
		return a, tea.Quit

	case key.Matches(msg, a.keys.ScrollUp):
		a.viewport.HalfPageUp()
		return a, nil

	case key.Matches(msg, a.keys.ScrollDown):
		a.viewport.HalfPageDown()
		return a, nil

	case key.Matches(msg, a.keys.Clear):
		if a.pending {
			return a, nil
		}
		a.transcript = nil
		a.status.Clear()
		a.refresh()
		return a, nil

	case key.Matches(msg, a.keys.Send):
		return a, a.submit()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts answering the typed question. Nothing happens while an
// answer is in flight or the input is blank.
func (a *App) submit() tea.Cmd {
	query := strings.TrimSpace(a.input.Value())
	if a.pending || query == "" {
		return nil
	}

	a.input.Reset()
	a.transcript = append(a.transcript,
		Turn{Role: RoleUser, Text: query},
		Turn{Role: RoleAssistant},
	)
	a.pending = true
	a.status.SetState(status.StateThinking)
	a.status.SetMessage("")
	a.refresh()

	return tea.Batch(a.ask(query), a.spinner.Tick)
}

// ask opens an answer stream for query.
func (a *App) ask(query string) tea.Cmd {
	chat := a.ports.Chat
	ctx := a.ctx
	return func() tea.Msg {
		stream, err := chat.AnswerStream(ctx, query)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.AnswerStarted{Stream: stream}
	}
}

// recv pulls a single fragment from stream.
func (a *App) recv(stream driven.ChatStream) tea.Cmd {
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return messages.AnswerCompleted{}
		}
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.FragmentReceived{Text: text}
	}
}

func (a *App) appendToAnswer(text string) {
	if n := len(a.transcript); n > 0 && a.transcript[n-1].Role == RoleAssistant {
		a.transcript[n-1].Text += text
	}
	a.refresh()
}

// finish closes the stream and records err on the pending answer.
func (a *App) finish(err error) {
	a.closeStream()
	a.pending = false
	if n := len(a.transcript); err != nil && n > 0 && a.transcript[n-1].Role == RoleAssistant {
		a.transcript[n-1].Err = err
	}
	a.refresh()
}

func (a *App) closeStream() {
	if a.stream == nil {
		return
	}
	if err := a.stream.Close(); err != nil {
		logger.Debug("chat tui: closing stream: %v", err)
	}
	a.stream = nil
}

// refresh re-renders the transcript into the viewport and follows the tail.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("Ask anything about the indexed videos.")
	}

	body := lipgloss.NewStyle().Width(max(a.viewport.Width-2, 10))

	var sb strings.Builder
	for i, turn := range a.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch turn.Role {
		case RoleUser:
			sb.WriteString(a.styles.User.Render("You"))
		case RoleAssistant:
			sb.WriteString(a.styles.Assistant.Render("Assistant"))
		}
		sb.WriteString("\n")

		last := i == len(a.transcript)-1
		switch {
		case turn.Text == "" && last && a.pending:
			sb.WriteString(a.spinner.View() + a.styles.Muted.Render(" thinking"))
		case turn.Err != nil && turn.Text == "":
			sb.WriteString(a.styles.Error.Render("Could not answer: " + turn.Err.Error()))
		default:
			sb.WriteString(body.Render(turn.Text))
			if turn.Err != nil {
				sb.WriteString("\n" + a.styles.Error.Render("(answer interrupted)"))
			}
		}
	}
	return sb.String()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("vidrag chat"),
		a.viewport.View(),
		a.input.View(),
		a.status.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	a.closeStream()
	return err
}

// Transcript returns a copy of the conversation so far.
func (a *App) Transcript() []Turn {
	out := make([]Turn, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// Pending reports whether an answer is in flight.
func (a *App) Pending() bool {
	return a.pending
}

// Status returns the current status bar state.
func (a *App) Status() status.State {
	return a.status.State()
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions lays the components out for a terminal of the given size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.refresh()
}
