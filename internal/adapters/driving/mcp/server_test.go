package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("retrieval only is valid", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval:  &mockRetrievalService{},
			Chat:       &mockChatService{},
			Counter:    &mockCounter{},
			ContentDir: t.TempDir(),
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestInstructions(t *testing.T) {
	withoutChat := instructions(&Ports{Retrieval: &mockRetrievalService{}})
	assert.Contains(t, withoutChat, "retrieve tool")
	assert.NotContains(t, withoutChat, "ask tool")
	assert.Contains(t, withoutChat, "vidrag://pages")

	withChat := instructions(&Ports{Retrieval: &mockRetrievalService{}, Chat: &mockChatService{}})
	assert.Contains(t, withChat, "ask tool")
}
