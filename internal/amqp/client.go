// Package amqp publishes and consumes ledger events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

const (
	publishTimeout = 5 * time.Second
	maxDialTimeout = 2 * time.Second
	heartbeat      = 10 * time.Second
	maxBackoff     = 30 * time.Second
	maxFailures    = 5
	openTimeout    = 30 * time.Second
)

// Client owns one connection and channel, reconnecting lazily when the
// broker goes away. Publishing is guarded by a circuit breaker so a dead
// broker costs one fast error instead of a dial per message.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger
	breaker      *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var _ ledger.Notifier = (*Client)(nil)

// NewClient prepares a client without dialing; the first publish or consume
// connects.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default(log.ComponentAMQP)
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	return &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "amqp-publish",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// dialTimeout bounds the TCP dial and the AMQP handshake by ctx's deadline,
// never exceeding maxDialTimeout.
func dialTimeout(ctx context.Context) time.Duration {
	timeout := maxDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	timeout := dialTimeout(ctx)
	if timeout <= 0 {
		return fmt.Errorf("dial AMQP: %w", context.DeadlineExceeded)
	}
	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, channel

	if err := c.setupLocked(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.logger.Info("Connected to AMQP broker", "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

func (c *Client) setupLocked() error {
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

	// Routing key equals the queue name on a direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Notify implements ledger.Notifier by publishing the event.
func (c *Client) Notify(ctx context.Context, e ledger.Event) error {
	return c.Publish(ctx, NewLedgerEventMessage(e))
}

// Publish sends one persistent message to the exchange.
func (c *Client) Publish(ctx context.Context, msg *LedgerEventMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.publish(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit breaker is open: %w", err)
	}
	if err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "Published ledger event",
		"type", string(msg.Type), log.FieldUserID, msg.UserID, log.FieldRecordID, msg.Record.ID)
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}
	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.closeLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Handler processes one message. Returning an error requeues it.
type Handler func(ctx context.Context, msg *LedgerEventMessage) error

// ConsumeLedgerEvents delivers messages to handler until ctx is cancelled,
// reconnecting with exponential backoff when the broker drops. Malformed
// messages are rejected without requeue.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler Handler) error {
	attempt := 0
	for {
		msgs, err := c.startConsuming(ctx)
		if err != nil {
			wait := exponentialBackoff(attempt)
			c.logger.WarnContext(ctx, "Failed to start consuming, retrying",
				log.FieldError, err.Error(), "retry_in", wait.String())
			attempt++
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		attempt = 0
		c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

		if err := c.consume(ctx, msgs, handler); err != nil {
			if ctx.Err() != nil {
				c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err().Error())
				return ctx.Err()
			}
			c.logger.WarnContext(ctx, "Delivery channel closed, reconnecting", log.FieldError, err.Error())
		}
	}
}

func (c *Client) startConsuming(ctx context.Context) (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	if err := c.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Client) consume(ctx context.Context, msgs <-chan amqp091.Delivery, handler Handler) error {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			msg, err := LedgerEventMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to decode message", log.FieldError, err.Error())
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle message",
					log.FieldError, err.Error(), "type", string(msg.Type), log.FieldRecordID, msg.Record.ID)
				delivery.Nack(false, true)
				// Slow down so a failing downstream is not hammered by redeliveries
				if !sleep(ctx, exponentialBackoff(failures)) {
					return ctx.Err()
				}
				failures++
				continue
			}
			failures = 0
			delivery.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isConnectionError reports whether err means the connection is unusable.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "use of closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
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
