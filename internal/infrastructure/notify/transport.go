package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// Transport delivers a single notification.
type Transport interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// Nop satisfies ports.Notifier and drops everything.
type Nop struct{}

func (Nop) Notify(context.Context, domain.Notification) error { return nil }

// LogTransport writes notifications to the logger instead of sending them.
// Tokens only appear at debug level.
type LogTransport struct {
	log zerolog.Logger
}

func NewLogTransport(log zerolog.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(_ context.Context, n domain.Notification) error {
	t.log.Info().
		Str("kind", string(n.Kind)).
		Str("to", n.To).
		Msg("notification")
	if n.Token != "" {
		t.log.Debug().Str("kind", string(n.Kind)).Str("to", n.To).Str("token", n.Token).Msg("notification token")
	}
	return nil
}
