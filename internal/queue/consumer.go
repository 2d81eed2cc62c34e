// Package queue also contains the background consumer that drains the
// email.send queue and hands each message to a delivery function
// (SMTP in production, a log line when SMTP is not configured).
package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverFunc performs the actual delivery of one email.
type DeliverFunc func(msg EmailMessage) error

// StartEmailConsumer connects to RabbitMQ, declares the email.send
// queue (durable), and starts consuming messages. The function runs a
// reconnect loop with exponential backoff and keeps running across
// broker restarts; processing errors are logged and the offending
// message is dropped (a notification is not worth redelivery storms).
func StartEmailConsumer(url string, deliver DeliverFunc) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("email-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, deliver); err != nil {
			log.Printf("email-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, deliver DeliverFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("email-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(EmailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(EmailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, deliver); err != nil {
			log.Printf("email-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // drop, do not requeue
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}

func handleMessage(body []byte, deliver DeliverFunc) error {
	var msg EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal email message: %w", err)
	}
	if msg.To == "" {
		return fmt.Errorf("email message without recipient")
	}
	return deliver(msg)
}
