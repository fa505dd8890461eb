// Package queue distributes fired check jobs across worker processes over
// a NATS queue group.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/tekuonline/uptivalab/internal/models"
)

// Handler runs one check job
type Handler interface {
	Handle(ctx context.Context, job models.CheckJob)
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Connect dials the NATS server with reconnect logging
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("uptivalab"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// Publisher dispatches jobs by publishing them on a subject
type Publisher struct {
	conn    publisher
	subject string
}

// NewPublisher creates a publisher for subject
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Dispatch publishes job as JSON
func (p *Publisher) Dispatch(ctx context.Context, job models.CheckJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode check job: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish check job for monitor %d: %w", job.MonitorID, err)
	}
	return nil
}

// Consumer receives jobs as a member of a queue group so each job runs
// on exactly one worker.
type Consumer struct {
	handler Handler
	logger  *zap.Logger
	sub     *nats.Subscription
	wg      sync.WaitGroup
}

// NewConsumer creates a consumer delivering jobs to handler
func NewConsumer(handler Handler, logger *zap.Logger) *Consumer {
	return &Consumer{handler: handler, logger: logger}
}

// Start joins the queue group on subject
func (c *Consumer) Start(conn *nats.Conn, subject, queue string) error {
	sub, err := conn.QueueSubscribe(subject, queue, c.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	c.sub = sub
	c.logger.Info("job consumer started", zap.String("subject", subject), zap.String("queue", queue))
	return nil
}

// Stop drains the subscription and waits for in-flight jobs until ctx
// expires.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			c.logger.Warn("failed to drain subscription", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight jobs: %w", ctx.Err())
	}
}

// handleMsg runs each job in its own goroutine so a slow check does not
// stall delivery; the executor bounds concurrency.
func (c *Consumer) handleMsg(msg *nats.Msg) {
	var job models.CheckJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		c.logger.Error("discarding malformed check job", zap.Error(err))
		return
	}
	if job.MonitorID <= 0 {
		c.logger.Error("discarding check job without monitor id", zap.String("key", job.Key))
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.handler.Handle(context.Background(), job)
	}()
}
