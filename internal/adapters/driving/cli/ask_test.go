package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCmd(t *testing.T) {
	c := setupTestDeps(t)
	chat := &mockChat{answer: "Open Settings, then Export."}
	c.chat = chat

	out, err := execute(t, "", "ask", "how", "do", "I", "export?")

	require.NoError(t, err)
	assert.Equal(t, []string{"how do I export?"}, chat.queries)
	assert.Contains(t, out, "Open Settings, then Export.\n")
}

func TestAskCmd_Failure(t *testing.T) {
	c := setupTestDeps(t)
	c.chat = &mockChat{err: errors.New("llm down")}

	_, err := execute(t, "", "ask", "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer failed: llm down")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	setupTestDeps(t)

	_, err := execute(t, "", "ask")

	assert.Error(t, err)
}

func TestChatCmd_LineMode(t *testing.T) {
	c := setupTestDeps(t)
	chat := &mockChat{answer: "Sure."}
	c.chat = chat

	out, err := execute(t, "first question\n  second  \nexit\nnever asked\n", "chat", "--plain")

	require.NoError(t, err)
	assert.Equal(t, []string{"first question", "second"}, chat.queries)
	assert.Contains(t, out, "> Sure.\n")
}

func TestChatCmd_LineModeStopsAtEOF(t *testing.T) {
	c := setupTestDeps(t)
	chat := &mockChat{answer: "ok"}
	c.chat = chat

	_, err := execute(t, "only one", "chat", "--plain")

	require.NoError(t, err)
	assert.Equal(t, []string{"only one"}, chat.queries)
}

func TestChatCmd_LineModeReportsErrors(t *testing.T) {
	c := setupTestDeps(t)
	c.chat = &mockChat{err: errors.New("retrieval down")}

	out, err := execute(t, "q\n\n", "chat", "--plain")

	require.NoError(t, err)
	assert.Contains(t, out, "answer failed: retrieval down")
}
