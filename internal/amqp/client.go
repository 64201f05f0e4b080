// Package amqp serves dashboard summaries over RabbitMQ request/reply.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"disputes/internal/log"
	"disputes/internal/resilience"
)

// directReplyTo is RabbitMQ's pseudo-queue for RPC replies.
const directReplyTo = "amq.rabbitmq.reply-to"

const (
	maxBackoff      = 30 * time.Second
	publishTimeout  = 5 * time.Second
	prefetchCount   = 4
	dialMaxRetries  = 5
	dialBackoffBase = time.Second
)

var ErrClosed = errors.New("amqp client closed")

// Handler answers one summary request. It never returns nil.
type Handler func(ctx context.Context, req *SummaryRequest) *SummaryReply

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger
	breaker      *gobreaker.CircuitBreaker

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool
}

// NewClient dials the broker, retrying connection failures, and declares
// the exchange and request queue.
func NewClient(ctx context.Context, url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
		breaker:      resilience.NewCircuitBreaker("amqp:" + queueName),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	var conn *amqp091.Connection
	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: dialMaxRetries, InitialBackoff: dialBackoffBase}, func() error {
		var err error
		conn, err = amqp091.Dial(c.url)
		if err != nil && !isConnectionError(err) {
			return resilience.Permanent(err)
		}
		if err != nil {
			c.logger.WarnContext(ctx, "AMQP dial failed, retrying", log.FieldError, err.Error())
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
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

	_, err = ch.QueueDeclare(
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

	err = ch.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Call publishes req and waits for the correlated reply on the direct
// reply-to queue. A fresh channel is used per call.
func (c *Client) Call(ctx context.Context, req *SummaryRequest) (*SummaryReply, error) {
	body, err := req.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return resilience.Guard(ctx, c.breaker, resilience.Config{}, func(ctx context.Context) (*SummaryReply, error) {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return nil, resilience.Permanent(ErrClosed)
		}

		ch, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("open rpc channel: %w", err)
		}
		defer ch.Close()

		replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("consume replies: %w", err)
		}

		correlationID := uuid.NewString()
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = ch.PublishWithContext(pubCtx,
			c.exchangeName, // exchange
			c.queueName,    // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: correlationID,
				ReplyTo:       directReplyTo,
				Timestamp:     time.Now(),
				Body:          body,
			},
		)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("publish request: %w", err)
		}
		c.logger.DebugContext(ctx, "Published summary request", log.FieldCorrelation, correlationID)

		for {
			select {
			case <-ctx.Done():
				return nil, resilience.Permanent(ctx.Err())
			case d, ok := <-replies:
				if !ok {
					return nil, fmt.Errorf("reply channel closed")
				}
				if d.CorrelationId != correlationID {
					continue
				}
				reply, err := SummaryReplyFromJSON(d.Body)
				if err != nil {
					return nil, resilience.Permanent(fmt.Errorf("decode reply: %w", err))
				}
				return reply, nil
			}
		}
	})
}

// ConsumeSummaryRequests serves requests until ctx is done. A closed
// channel triggers a reconnect with exponential backoff.
func (c *Client) ConsumeSummaryRequests(ctx context.Context, handler Handler) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if errors.Is(err, ErrClosed) {
			return err
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Consumer stopped, reconnecting", log.FieldError, err.Error(), "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.reconnect(ctx); err != nil {
			c.logger.ErrorContext(ctx, "AMQP reconnect failed", log.FieldError, err.Error())
			continue
		}
		attempt = -1
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Client) consumeOnce(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	ch, closed := c.channel, c.closed
	c.mu.Unlock()
	if closed || ch == nil {
		return ErrClosed
	}

	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming summary requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.serve(ctx, ch, d, handler)
		}
	}
}

func (c *Client) serve(ctx context.Context, ch *amqp091.Channel, d amqp091.Delivery, handler Handler) {
	reply, ok := buildReply(ctx, d.Body, handler)
	if !ok {
		c.logger.ErrorContext(ctx, "Failed to unmarshal summary request", log.FieldCorrelation, d.CorrelationId)
	}
	if d.ReplyTo == "" {
		c.logger.WarnContext(ctx, "Summary request without reply-to, dropping", log.FieldCorrelation, d.CorrelationId)
		d.Nack(false, false)
		return
	}

	body, err := reply.ToJSON()
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to marshal summary reply", log.FieldError, err.Error())
		d.Nack(false, false)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", d.ReplyTo, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish summary reply", log.FieldError, err.Error())
		d.Nack(false, true)
		return
	}
	d.Ack(false)
	c.logger.InfoContext(ctx, "Answered summary request",
		log.FieldCorrelation, d.CorrelationId,
		log.FieldFiltered, reply.Filtered,
		"failed", reply.Error != "")
}

// buildReply decodes body and runs handler. Undecodable requests get an
// error reply; ok reports whether decoding succeeded.
func buildReply(ctx context.Context, body []byte, handler Handler) (*SummaryReply, bool) {
	req, err := SummaryRequestFromJSON(body)
	if err != nil {
		return &SummaryReply{Error: "invalid request: " + err.Error(), Timestamp: time.Now()}, false
	}
	reply := handler(ctx, req)
	if reply == nil {
		reply = &SummaryReply{Error: "no reply produced"}
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = time.Now()
	}
	return reply, true
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
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
	for _, s := range []string{"connection refused", "connection closed", "connection reset", "eof", "broken pipe", "closed network connection", "i/o timeout", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
