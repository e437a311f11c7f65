package domain

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrValidation, ErrEmbedding, ErrStorage, ErrIngestion,
		ErrNotFound, ErrLLMUnavailable, ErrEmbeddingUnavailable, ErrQueueUnavailable,
	}
	for i := range all {
		for j := range all {
			if i != j {
				assert.NotErrorIs(t, all[i], all[j])
			}
		}
	}
}

func TestIngestionError_MatchesTaxonomyAndCause(t *testing.T) {
	cause := errors.Join(ErrEmbedding, errors.New("rate limited"))
	err := error(&IngestionError{Path: "content/a.md", ChunkIndex: 2, Err: cause})

	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.NotErrorIs(t, err, ErrStorage)

	var ie *IngestionError
	assert.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.ChunkIndex)
	assert.Contains(t, err.Error(), "content/a.md (chunk 2)")
}

func TestIngestionError_BeforeChunking(t *testing.T) {
	err := &IngestionError{Path: "missing.md", ChunkIndex: -1, Err: fs.ErrNotExist}

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotContains(t, err.Error(), "chunk")
	assert.Contains(t, err.Error(), "missing.md")
}
