package notify

import (
	"context"
	"log/slog"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

// Dispatcher fans one alert out to every configured channel, sequentially,
// and persists one attempt record per channel.
type Dispatcher struct {
	store    *store.Store
	channels []Channel
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(st *store.Store, channels ...Channel) *Dispatcher {
	return &Dispatcher{store: st, channels: channels}
}

// Dispatch delivers a on every channel. It never returns an error: channel
// failures are recorded as FAILED attempts, and a failure to persist an
// attempt record is logged — neither may roll back or fail the alert
// operation that triggered the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, a *store.Alert) {
	for _, ch := range d.channels {
		out := ch.Send(ctx, a)

		att := &store.NotificationAttempt{
			AlertID: a.ID,
			Channel: ch.Name(),
			Status:  store.AttemptSent,
		}
		if !out.Sent {
			att.Status = store.AttemptFailed
		}
		if out.MessageID != "" {
			v := out.MessageID
			att.MessageID = &v
		}
		if out.ResponseCode != "" {
			v := out.ResponseCode
			att.ResponseCode = &v
		}
		if out.Err != "" {
			v := out.Err
			att.ErrorMessage = &v
		}

		if err := d.store.CreateAttempt(ctx, att); err != nil {
			slog.Error("notify: failed to record delivery attempt",
				"alert_id", a.ID, "channel", ch.Name(), "err", err)
		}

		if out.Sent {
			slog.Info("notify: delivered",
				"alert_id", a.ID, "channel", ch.Name(), "message_id", out.MessageID)
		} else {
			slog.Warn("notify: delivery failed",
				"alert_id", a.ID, "channel", ch.Name(), "err", out.Err)
		}
	}
}
