package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.Answers())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Bar)
		want  string
	}{
		{name: "ready", setup: func(*Bar) {}, want: "Ready"},
		{name: "model", setup: func(b *Bar) { b.SetModel("gpt-4o") }, want: "gpt-4o"},
		{name: "thinking", setup: func(b *Bar) { b.SetState(StateThinking) }, want: "Thinking..."},
		{name: "streaming", setup: func(b *Bar) { b.SetState(StateStreaming) }, want: "Answering..."},
		{name: "error", setup: func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage("llm down")
		}, want: "Error: llm down"},
		{name: "answered", setup: func(b *Bar) {
			b.IncAnswers()
			b.IncAnswers()
		}, want: "2 answered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			tt.setup(bar)

			view := bar.View()

			assert.Contains(t, view, tt.want)
			assert.Contains(t, view, "enter: send")
		})
	}
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.IncAnswers()

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.Answers())
}

func TestBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(10)

	assert.Equal(t, 10, bar.Width())
	assert.NotEmpty(t, bar.View())
}
