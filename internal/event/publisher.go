package event

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout  = 5 * time.Second
	publishAttempts = 3
)

// Publisher writes events to durable broker queues, one queue per
// topic.  Publishing is a side channel relative to the primary state
// mutation: callers log failures and carry on, so every method here is
// bounded by a timeout and a small retry budget and never panics.
//
// The connection is opened lazily and re-opened after failures.  An
// empty URL disables publishing, which keeps tests and local setups
// without a broker working.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	// queues already declared on the current channel
	declared map[string]bool
}

// NewPublisher returns a Publisher for the given broker URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, declared: make(map[string]bool)}
}

// Publish marshals payload and appends it to the topic's durable
// queue.  It retries a bounded number of times with a fresh channel
// and gives up after the publish timeout so the caller's critical path
// is never blocked indefinitely.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) error {
	if p == nil || p.url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		if err := p.publishOnce(ctx, topic, body); err != nil {
			lastErr = err
			p.reset()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (p *Publisher) publishOnce(ctx context.Context, topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return err
		}
		p.conn = conn
		p.ch = ch
		p.declared = make(map[string]bool)
	}
	if !p.declared[topic] {
		// Durable so messages survive broker restarts.
		if _, err := p.ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[topic] = true
	}
	return p.ch.PublishWithContext(ctx,
		"",    // default exchange
		topic, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close tears down the broker connection.
func (p *Publisher) Close() { p.reset() }

// SeatUpdated publishes a seat transition, logging and swallowing any
// failure.  The domain operation has already committed by the time
// this runs; a lost event is reconciled by the next layout fetch.
func (p *Publisher) SeatUpdated(ctx context.Context, ev SeatUpdate) {
	if err := p.Publish(ctx, TopicSeatUpdates, ev); err != nil {
		log.Printf("publisher: seat update publish failed: %v", err)
	}
}

// BookingUpdated publishes a booking lifecycle event, logging and
// swallowing any failure.
func (p *Publisher) BookingUpdated(ctx context.Context, ev BookingUpdate) {
	if err := p.Publish(ctx, TopicBookingUpdates, ev); err != nil {
		log.Printf("publisher: booking update publish failed: %v", err)
	}
}

// PaymentUpdated publishes a payment event, logging and swallowing any
// failure.
func (p *Publisher) PaymentUpdated(ctx context.Context, ev PaymentUpdate) {
	if err := p.Publish(ctx, TopicPaymentUpdates, ev); err != nil {
		log.Printf("publisher: payment update publish failed: %v", err)
	}
}
