package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

// Outcome is the result of one delivery attempt on a single channel.
// The zero value is a failure with no detail.
type Outcome struct {
	// Sent is true when the channel confirmed delivery.
	Sent bool

	// MessageID is the provider-issued message identifier, when one exists.
	MessageID string

	// ResponseCode is the provider's response code, when one exists.
	ResponseCode string

	// Err describes the failure when Sent is false.
	Err string
}

// Channel is one alert delivery mechanism. Send must capture every internal
// failure into the returned Outcome — it has no error return on purpose.
type Channel interface {
	Send(ctx context.Context, a *store.Alert) Outcome
	Name() string
}

// kindEmoji is the marker prepended to formatted alert text per kind.
func kindEmoji(kind string) string {
	switch kind {
	case store.KindError:
		return "🚨"
	case store.KindWarning:
		return "⚠️"
	case store.KindRecovery:
		return "✅"
	}
	return "📢"
}

// formatAlert renders the human-readable notification block shared by the
// text-based channels.
func formatAlert(a *store.Alert) string {
	lines := []string{
		fmt.Sprintf("%s %s alert", kindEmoji(a.Kind), a.Kind),
		"target: " + a.TargetURL,
		"message: " + a.Message,
		"status: " + a.Status,
		"created: " + a.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"),
	}
	if a.ResolvedAt != nil {
		lines = append(lines, "resolved: "+a.ResolvedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	return strings.Join(lines, "\n")
}
