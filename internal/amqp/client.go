package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"trackify/internal/core"
	"trackify/internal/mirror"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateHalfOpen
	StateOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes and consumes mirror jobs on a durable direct exchange.
// It satisfies mirror.Writer so the producer can enqueue instead of calling
// the remote backend inline.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

var _ mirror.Writer = (*Client)(nil)

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// connect dials and declares the topology. Callers hold c.mu or own c exclusively.
func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// ensureChannel reconnects when the channel was dropped or closed by the broker.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connect(); err != nil {
		return nil, err
	}
	slog.Info("Reconnected to AMQP broker", "exchange", c.exchangeName, "queue", c.queueName)
	return c.channel, nil
}

func (c *Client) dropChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Publish enqueues a mirror job as a persistent message.
func (c *Client) Publish(ctx context.Context, job *MirrorJob) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish job %s: circuit breaker is open", job.Op)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish job %s: %w", job.Op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    job.ID,
			Timestamp:    job.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropChannel()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published mirror job",
		"job_id", job.ID,
		"op", job.Op,
		"user_id", job.UserID,
		"count", len(job.Transactions),
		"queue", c.queueName)
	return nil
}

func (c *Client) SaveTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	return c.Publish(ctx, NewSaveJob(userID, tx))
}

func (c *Client) SaveTransactions(ctx context.Context, userID string, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return c.Publish(ctx, NewSaveBatchJob(userID, txs))
}

func (c *Client) DeleteTransaction(ctx context.Context, userID, id string) error {
	return c.Publish(ctx, NewDeleteJob(userID, id))
}

// Consume delivers jobs to handler until ctx is done. Undecodable messages
// are dropped; handler failures are requeued. When the broker connection is
// lost it reconnects with exponential backoff.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *MirrorJob) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer lost connection, retrying",
			"error", err, "attempt", attempt, "backoff", wait)
		c.dropChannel()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *MirrorJob) error, onStart func()) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}
	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	onStart()

	slog.InfoContext(ctx, "Started consuming mirror jobs", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}

			job, err := MirrorJobFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to decode mirror job", "error", err, "message_id", delivery.MessageId)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, job); err != nil {
				slog.ErrorContext(ctx, "Failed to apply mirror job",
					"error", err,
					"job_id", job.ID,
					"op", job.Op,
					"user_id", job.UserID)
				delivery.Nack(false, !delivery.Redelivered) // requeue once
				continue
			}

			delivery.Ack(false)
			slog.DebugContext(ctx, "Applied mirror job", "job_id", job.ID, "op", job.Op)
		}
	}
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
