package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []float32{float32(len(text)), 1}, nil
}
func (m *mockEmbedder) Dimensions() int              { return 2 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func TestEmbed_LocalHit(t *testing.T) {
	ctx := context.Background()
	inner := &mockEmbedder{}
	svc, err := Wrap(inner, WithSize(8))
	require.NoError(t, err)

	first, err := svc.Embed(ctx, "abc")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, svc.Len())

	// Callers may mutate what they get back.
	second[0] = 99
	third, err := svc.Embed(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, float32(3), third[0])
}

func TestEmbed_ErrorsAreNotCached(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("embedding failed")}
	svc, err := Wrap(inner)
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, 0, svc.Len())
}

func TestEmbed_RedisSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	newSvc := func(inner *mockEmbedder) *EmbeddingService {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		svc, err := Wrap(inner, WithRedis(client, 0))
		require.NoError(t, err)
		t.Cleanup(func() { _ = svc.Close() })
		return svc
	}

	a := &mockEmbedder{}
	_, err := newSvc(a).Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)

	svcB := newSvc(&mockEmbedder{})
	assert.True(t, mr.Exists(svcB.Key("hello")))

	b := svcB.EmbeddingService.(*mockEmbedder)
	got, err := svcB.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, got)
	assert.Equal(t, 0, b.calls)
}

func TestEmbed_RedisDownFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})

	inner := &mockEmbedder{}
	svc, err := Wrap(inner, WithRedis(client, 0))
	require.NoError(t, err)

	got, err := svc.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, got)
	assert.Equal(t, 1, inner.calls)
}

func TestKey_DependsOnText(t *testing.T) {
	svc, err := Wrap(&mockEmbedder{})
	require.NoError(t, err)

	assert.NotEqual(t, svc.Key("a"), svc.Key("b"))
	assert.Equal(t, svc.Key("a"), svc.Key("a"))
}

func TestDecode_RejectsWrongLength(t *testing.T) {
	_, ok := decode(encode([]float32{1, 2, 3}), 2)
	assert.False(t, ok)

	v, ok := decode(encode([]float32{1, 2}), 2)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)
}
