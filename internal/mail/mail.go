package mail

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes outgoing mail to the application log instead of
// delivering it. It is the default when no SMTP relay is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	log.WithContext(ctx).Infow("outgoing mail", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// Memory keeps sent messages; used by tests.
type Memory struct {
	mu   sync.Mutex
	sent []Message
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *Memory) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
