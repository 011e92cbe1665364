package event

// consumer.go contains the background consumer that drains the three
// event topics and appends each message to logs/events.log.  It stands
// in for the asynchronous downstream consumers (analytics, audit) the
// durable log exists for, and doubles as a liveness check on the
// broker during development.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumer connects to the broker, declares the durable topic
// queues and consumes them forever.  It runs a reconnect loop with
// capped backoff; processing errors reject the offending message
// without requeueing so a poison message cannot wedge the consumer.
func StartConsumer(url string) {
	if url == "" {
		return
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		if err := consumeLoop(conn); err != nil {
			log.Printf("consumer: loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("consumer: set QoS failed: %v", err)
	}

	topics := []string{TopicSeatUpdates, TopicBookingUpdates, TopicPaymentUpdates}
	deliveries := make(chan topicDelivery)
	// done unblocks forwarders once this loop returns; without it a
	// forwarder holding a delivery would stay parked on the abandoned
	// channel across every reconnect.
	done := make(chan struct{})
	defer close(done)
	for _, topic := range topics {
		if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", topic, err)
		}
		msgs, err := ch.Consume(topic, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", topic, err)
		}
		go func(topic string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- topicDelivery{topic: topic, d: d}:
				case <-done:
					return
				}
			}
		}(topic, msgs)
	}

	closed := make(chan *amqp.Error, 1)
	conn.NotifyClose(closed)
	for {
		select {
		case td := <-deliveries:
			if err := appendToLog(td.topic, td.d.Body); err != nil {
				log.Printf("consumer: handle %s message failed: %v", td.topic, err)
				_ = td.d.Nack(false, false)
				continue
			}
			_ = td.d.Ack(false)
		case err := <-closed:
			if err != nil {
				return err
			}
			return errors.New("connection closed")
		}
	}
}

type topicDelivery struct {
	topic string
	d     amqp.Delivery
}

func appendToLog(topic string, body []byte) error {
	// Re-marshal through a map to normalise whitespace before logging.
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	compact, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "events.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	line := fmt.Sprintf("[%s] %s %s\n", time.Now().UTC().Format(time.RFC3339), topic, compact)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
