// Package notify composes supplier-facing messages and hands them to a sink.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
)

// Message is a supplier-facing email.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Recipient) == "" {
		return errors.New("notify: recipient required")
	}
	if strings.TrimSpace(m.Subject) == "" && strings.TrimSpace(m.Body) == "" {
		return errors.New("notify: subject or body required")
	}
	return nil
}

// Sink delivers messages.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// LogSink writes messages to the logger instead of delivering them.
type LogSink struct {
	Logger *slog.Logger
}

// Send logs the message together with its mailto link.
func (s LogSink) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "supplier message composed",
		slog.String("recipient", msg.Recipient),
		slog.String("subject", msg.Subject),
		slog.String("mailto", MailtoLink(msg)),
	)
	return nil
}

// Outbox keeps the most recent messages and forwards each one to Next.
type Outbox struct {
	Next  Sink
	Limit int

	mu       sync.Mutex
	messages []Message
}

// Send records msg, then forwards it.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	limit := o.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(o.messages) > limit {
		o.messages = append([]Message(nil), o.messages[len(o.messages)-limit:]...)
	}
	o.mu.Unlock()
	if o.Next == nil {
		return nil
	}
	return o.Next.Send(ctx, msg)
}

// Messages returns the recorded messages, oldest first.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// MailtoLink builds a mail-compose link for msg.
func MailtoLink(msg Message) string {
	return "mailto:" + msg.Recipient + "?subject=" + escape(msg.Subject) + "&body=" + escape(msg.Body)
}

// escape percent-encodes like encodeURIComponent; mail clients do not read '+' as space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
