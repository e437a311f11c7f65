// Package worker consumes ingestion jobs from the queue and ingests them
// with a fixed number of concurrent workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	natsqueue "github.com/custodia-labs/vidrag/internal/adapters/driven/queue/nats"
	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// DefaultWorkers is used when the pool is created with a non-positive size.
const DefaultWorkers = 4

// Subscriber delivers queued jobs to a handler.
type Subscriber interface {
	Subscribe(group string, handler natsqueue.Handler) (*nats.Subscription, error)
}

// job pairs a queued job with the context the publisher attached to it.
type job struct {
	ctx context.Context
	job domain.IngestJob
}

// Stats counts processed jobs.
type Stats struct {
	Ingested int64
	Failed   int64
}

// Pool ingests jobs concurrently.
type Pool struct {
	retrieval driving.RetrievalService
	workers   int

	ingested atomic.Int64
	failed   atomic.Int64
}

// NewPool creates a pool of workers.
func NewPool(retrieval driving.RetrievalService, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{retrieval: retrieval, workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Stats returns the counters so far.
func (p *Pool) Stats() Stats {
	return Stats{Ingested: p.ingested.Load(), Failed: p.failed.Load()}
}

// Run subscribes to the queue and ingests jobs until ctx is cancelled.
func (p *Pool) Run(ctx context.Context, sub Subscriber, group string) error {
	jobs := make(chan job)

	subscription, err := sub.Subscribe(group, func(jobCtx context.Context, j domain.IngestJob) {
		select {
		case jobs <- job{ctx: jobCtx, job: j}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer func() {
		if err := subscription.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			logger.Warn("worker: unsubscribe: %v", err)
		}
	}()

	logger.Info("Worker pool started with %d workers", p.workers)
	err = p.consume(ctx, jobs)
	stats := p.Stats()
	logger.Info("Worker pool stopped: %d ingested, %d failed", stats.Ingested, stats.Failed)
	return err
}

// consume runs the workers until ctx is cancelled or jobs is closed.
func (p *Pool) consume(ctx context.Context, jobs <-chan job) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j, ok := <-jobs:
					if !ok {
						return nil
					}
					p.handle(gctx, j)
				}
			}
		})
	}
	return g.Wait()
}

// handle ingests one job. Failures are logged and counted; they never stop
// the pool.
func (p *Pool) handle(ctx context.Context, j job) {
	jobCtx := j.ctx
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	// Keep the publisher's trace context but stop with the pool.
	jobCtx, cancel := context.WithCancel(jobCtx)
	stop := context.AfterFunc(ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	if err := p.retrieval.Ingest(jobCtx, j.job.Path); err != nil {
		p.failed.Add(1)
		logger.Error("Failed to ingest %s: %v", j.job.Path, err)
		return
	}
	p.ingested.Add(1)
	logger.Debug("Ingested %s (queued %s)", j.job.Path, j.job.EnqueuedAt.Format("15:04:05"))
}
