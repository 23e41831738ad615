package notifier

import (
	"context"

	"github.com/goliatone/go-accounts"
)

// Log writes messages to the logger instead of sending them
type Log struct {
	logger accounts.Logger
}

var _ accounts.Notifier = (*Log)(nil)

// NewLog creates a Log sender
func NewLog(logger accounts.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, msg accounts.Message) error {
	l.logger.Info("email", "to", msg.To, "subject", msg.Subject, "text", msg.Text, "html", msg.HasHTML())
	return nil
}
