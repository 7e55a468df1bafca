package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditLog appends one line per ticket event to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog writes to dir/tickets.log, creating dir when needed.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{path: filepath.Join(dir, "tickets.log")}
}

// Path returns the log file location.
func (a *AuditLog) Path() string { return a.path }

// FormatLine renders ev as a single human-readable line.
func FormatLine(ev TicketEvent) string {
	return fmt.Sprintf("[%s] %s | ticket_id=%d | code=%s | user_id=%d | session_id=%d | area_id=%d | seat=%d | price=%s | status=%s\n",
		ev.OccurredAt, ev.Type, ev.TicketID, ev.Code, ev.UserID, ev.SessionID, ev.AreaID, ev.SeatNumber, ev.Price, ev.Status)
}

// Handle decodes body and appends it to the log.
func (a *AuditLog) Handle(body []byte) error {
	var ev TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// StartTicketConsumer consumes TicketQueue and hands every delivery to
// sink.  It reconnects with exponential backoff (capped at 30s) and
// returns only when ctx is done.  Messages the sink rejects are nacked
// without requeue to avoid tight redelivery loops.
func StartTicketConsumer(ctx context.Context, url string, sink *AuditLog, log logrus.FieldLogger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("ticket-consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("ticket-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, sink *AuditLog, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("ticket-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(TicketQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, TicketQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := sink.Handle(d.Body); err != nil {
			log.WithError(err).Error("ticket-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
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
