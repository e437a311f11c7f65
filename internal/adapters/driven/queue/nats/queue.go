// Package nats publishes and consumes ingestion jobs over NATS core
// subjects with OpenTelemetry trace context in message headers.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/custodia-labs/vidrag/internal/core/domain"
	"github.com/custodia-labs/vidrag/internal/core/ports/driven"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// Ensure Queue implements the interface.
var _ driven.IngestQueue = (*Queue)(nil)

// Defaults.
const (
	DefaultSubject    = "vidrag.ingest"
	DefaultQueueGroup = "vidrag-workers"
)

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Queue is an ingestion queue on one subject.
type Queue struct {
	nc      *nats.Conn
	subject string
	owned   bool
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.Name("vidrag"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats: reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: %w: connect %s: %w", domain.ErrQueueUnavailable, url, err)
	}
	q := New(nc, subject)
	q.owned = true
	return q, nil
}

// New uses an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, subject string) *Queue {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Queue{nc: nc, subject: subject}
}

// Subject returns the subject jobs are published on.
func (q *Queue) Subject() string {
	return q.subject
}

// Enqueue publishes job and waits for the server to acknowledge the flush.
func (q *Queue) Enqueue(ctx context.Context, job domain.IngestJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("nats: encode job: %w", err)
	}

	msg := &nats.Msg{Subject: q.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	if err := q.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats: publish %s: %w", job.Path, err)
	}
	if err := q.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}
	return nil
}

// Handler processes one job. ctx carries the publisher's trace context.
type Handler func(ctx context.Context, job domain.IngestJob)

// Subscribe delivers jobs to handler. Subscribers sharing group split the
// stream between them. Malformed messages are logged and dropped.
func (q *Queue) Subscribe(group string, handler Handler) (*nats.Subscription, error) {
	if group == "" {
		group = DefaultQueueGroup
	}
	sub, err := q.nc.QueueSubscribe(q.subject, group, func(msg *nats.Msg) {
		var job domain.IngestJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Warn("nats: dropping malformed job: %v", err)
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, job)
	})
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe %s: %w", q.subject, err)
	}
	return sub, nil
}

// Close drains the connection if the queue opened it.
func (q *Queue) Close() error {
	if !q.owned {
		return nil
	}
	return q.nc.Drain()
}
