// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueueName is the durable queue carrying outbound mail.
const EmailQueueName = "email.send"

// EmailMessage is published for every outbound email (verification
// codes, share-invite notifications). Delivery is fire-and-forget: the
// publisher's caller never waits on it and a lost message only means a
// lost notification, never a failed API call.
type EmailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
