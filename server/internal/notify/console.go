package notify

import (
	"context"
	"log/slog"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

// consoleName is the channel name recorded on attempts.
const consoleName = "CONSOLE"

// ConsoleChannel writes alerts through the process logging sink. ERROR and
// WARNING alerts log at the matching severity, RECOVERY logs as info.
type ConsoleChannel struct {
	logger *slog.Logger
}

// NewConsole creates a ConsoleChannel writing to logger.
func NewConsole(logger *slog.Logger) *ConsoleChannel {
	return &ConsoleChannel{logger: logger}
}

// Name implements Channel.
func (c *ConsoleChannel) Name() string { return consoleName }

// Send implements Channel. Writing to the log sink cannot meaningfully fail,
// so the outcome is always sent.
func (c *ConsoleChannel) Send(ctx context.Context, a *store.Alert) Outcome {
	attrs := []any{
		"alert_id", a.ID,
		"kind", a.Kind,
		"target", a.TargetURL,
		"status", a.Status,
		"message", a.Message,
	}
	if a.ResolvedAt != nil {
		attrs = append(attrs, "resolved_at", a.ResolvedAt.UTC())
	}

	switch a.Kind {
	case store.KindError:
		c.logger.ErrorContext(ctx, formatAlert(a), attrs...)
	case store.KindWarning:
		c.logger.WarnContext(ctx, formatAlert(a), attrs...)
	default:
		c.logger.InfoContext(ctx, formatAlert(a), attrs...)
	}

	return Outcome{Sent: true}
}
