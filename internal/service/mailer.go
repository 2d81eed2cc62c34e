// Package service holds the side-effect collaborators used by the
// handlers: outbound mail, fire-and-forget task dispatch, and the
// periodic sweeper.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/shift-calendar/internal/queue"
	"github.com/iliyamo/shift-calendar/internal/utils"
)

// Mailer dispatches a single email out of band. Implementations never
// block the caller's success path: handlers invoke Send through
// FireAndForget and the primary operation succeeds regardless of the
// outcome here.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// QueueMailer publishes email messages to the durable email.send queue
// for the background consumer to deliver. Each publish dials its own
// connection; mail volume here is far too low to justify pooling.
type QueueMailer struct {
	URL string
}

func NewQueueMailer(url string) *QueueMailer { return &QueueMailer{URL: url} }

// Send publishes one EmailMessage. Errors are logged and returned so
// the caller can choose to ignore them.
func (m *QueueMailer) Send(ctx context.Context, from, to, subject, body string) error {
	conn, err := amqp.Dial(m.URL)
	if err != nil {
		log.Printf("mailer: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("mailer: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(queue.EmailQueueName, true, false, false, false, nil); err != nil {
		log.Printf("mailer: queue declare failed: %v", err)
		return err
	}

	payload, err := json.Marshal(queue.EmailMessage{From: from, To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	if err := ch.PublishWithContext(ctx, "", queue.EmailQueueName, false, false, pub); err != nil {
		log.Printf("mailer: publish failed: %v", err)
		return err
	}
	return nil
}

// LogMailer writes a log line instead of sending. Used in development
// and whenever no broker is configured; the recipient is masked.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, from, to, subject, body string) error {
	log.Printf("[email] from=%s to=%s subject=%q", from, utils.MaskEmail(to), subject)
	log.Printf("[email] body: %s", body)
	return nil
}

// SMTPDeliver builds the delivery function used by the email consumer:
// a plain authenticated send via the configured SMTP relay.
func SMTPDeliver(host, port, user, pass string) queue.DeliverFunc {
	return func(msg queue.EmailMessage) error {
		addr := host + ":" + port
		auth := smtp.PlainAuth("", user, pass, host)
		payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
			msg.From, msg.To, msg.Subject, msg.Body)
		return smtp.SendMail(addr, auth, msg.From, []string{msg.To}, []byte(payload))
	}
}

// LogDeliver is the consumer-side fallback when SMTP is not configured.
func LogDeliver() queue.DeliverFunc {
	return func(msg queue.EmailMessage) error {
		log.Printf("[email] (no SMTP configured) to=%s subject=%q", utils.MaskEmail(msg.To), msg.Subject)
		return nil
	}
}
