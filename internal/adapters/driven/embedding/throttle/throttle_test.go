package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vidrag/internal/core/domain"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	c.calls++
	return []float32{1}, nil
}
func (c *countingEmbedder) Dimensions() int              { return 1 }
func (c *countingEmbedder) ModelName() string            { return "counting" }
func (c *countingEmbedder) Ping(_ context.Context) error { return nil }
func (c *countingEmbedder) Close() error                 { return nil }

func TestWrap_ZeroRateIsPassthrough(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Same(t, inner, Wrap(inner, 0))
}

func TestEmbed_Paces(t *testing.T) {
	inner := &countingEmbedder{}
	svc := Wrap(inner, 20)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := svc.Embed(context.Background(), "x")
		require.NoError(t, err)
	}

	// The first call uses the burst token; the next two wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "counting", svc.ModelName())
}

func TestEmbed_ContextCancelled(t *testing.T) {
	inner := &countingEmbedder{}
	svc := Wrap(inner, 0.001)

	_, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = svc.Embed(ctx, "x")

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 1, inner.calls)
}
