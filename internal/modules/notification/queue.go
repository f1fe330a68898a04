package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	consumerPrefetch   = 50
	maxReconnectDelay  = 30 * time.Second
	consumerRetryDelay = 2 * time.Second
)

var bookingQueues = []string{QueueBookingConfirmed, QueueBookingExpired}

func declareQueues(ch *amqp.Channel) error {
	for _, name := range bookingQueues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}
	return nil
}

// AMQPPublisher publishes booking events as persistent messages on the
// default exchange. The connection is opened lazily and re-opened after the
// broker drops it.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", ev.queue(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// EventHandler processes one decoded booking event.
type EventHandler func(ctx context.Context, ev BookingEvent) error

// Consumer drains the booking queues and hands each event to a handler.
type Consumer struct {
	url     string
	handle  EventHandler
	loggerf func(format string, args ...interface{})
}

func NewConsumer(url string, handle EventHandler, loggerf func(format string, args ...interface{})) *Consumer {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Consumer{url: url, handle: handle, loggerf: loggerf}
}

// Run keeps a broker connection alive until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.loggerf("level=warn msg=booking consumer dial failed retry_in=%s err=%v", backoff, err)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxReconnectDelay {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.loggerf("level=warn msg=booking consumer loop ended, reconnecting err=%v", err)
		if !sleep(ctx, consumerRetryDelay) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		c.loggerf("level=warn msg=booking consumer set qos failed err=%v", err)
	}
	if err := declareQueues(ch); err != nil {
		return err
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, name := range bookingQueues {
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

// deliver acks on success. A failed message is requeued once and dropped
// after its second failure so a poison message cannot spin the consumer.
func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.process(ctx, d.Body); err != nil {
		c.loggerf("level=error msg=booking event handling failed queue=%s redelivered=%t err=%v",
			d.RoutingKey, d.Redelivered, err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) process(ctx context.Context, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.handle(ctx, ev)
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
