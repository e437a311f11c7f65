// Package cache memoises embeddings in process and, optionally, in Redis.
//
// Lookups go LRU, then Redis, then the wrapped service. Redis failures are
// logged and treated as misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults.
const (
	DefaultSize      = 1024
	DefaultTTL       = 24 * time.Hour
	DefaultKeyPrefix = "vidrag:emb:"
)

// Option configures the cache.
type Option func(*EmbeddingService)

// WithSize sets the number of in-process entries.
func WithSize(n int) Option {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithRedis adds a shared second tier.
func WithRedis(client *redis.Client, ttl time.Duration) Option {
	return func(s *EmbeddingService) {
		s.redis = client
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// EmbeddingService serves repeated texts from cache.
type EmbeddingService struct {
	driven.EmbeddingService

	size  int
	local *lru.Cache[string, []float32]
	redis *redis.Client
	ttl   time.Duration
}

// Wrap decorates next with a cache.
func Wrap(next driven.EmbeddingService, opts ...Option) (*EmbeddingService, error) {
	s := &EmbeddingService{
		EmbeddingService: next,
		size:             DefaultSize,
		ttl:              DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	local, err := lru.New[string, []float32](s.size)
	if err != nil {
		return nil, err
	}
	s.local = local
	return s, nil
}

// Key returns the cache key for text under the wrapped model.
func (s *EmbeddingService) Key(text string) string {
	h := sha256.New()
	h.Write([]byte(s.ModelName()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(s.Dimensions())))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return DefaultKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Embed returns a cached vector or computes and stores one.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.Key(text)

	if v, ok := s.local.Get(key); ok {
		return clone(v), nil
	}

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if v, ok := decode(raw, s.Dimensions()); ok {
				s.local.Add(key, v)
				return clone(v), nil
			}
		case !errors.Is(err, redis.Nil):
			logger.Warn("embedding cache: redis get: %v", err)
		}
	}

	v, err := s.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.local.Add(key, clone(v))
	if s.redis != nil {
		if err := s.redis.Set(ctx, key, encode(v), s.ttl).Err(); err != nil {
			logger.Warn("embedding cache: redis set: %v", err)
		}
	}
	return v, nil
}

// Len returns the number of in-process entries.
func (s *EmbeddingService) Len() int {
	return s.local.Len()
}

// Close closes the Redis client if any, then the wrapped service.
func (s *EmbeddingService) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.EmbeddingService.Close())
	return errors.Join(errs...)
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}

func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(raw []byte, dims int) ([]float32, bool) {
	if len(raw) == 0 || len(raw)%4 != 0 || (dims > 0 && len(raw)/4 != dims) {
		return nil, false
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v, true
}
