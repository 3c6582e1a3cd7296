package correlator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

// recoveryMessage is the body of RECOVERY alerts.
const recoveryMessage = "service has recovered"

// Failure carries the payload fields the correlator needs to word an ERROR
// alert message.
type Failure struct {
	StatusCode   *int
	ErrorMessage *string
}

// Dispatcher delivers a freshly created alert to the notification channels.
// Implementations must not fail the caller; see notify.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, a *store.Alert)
}

// Broadcaster pushes a freshly created alert to live stream subscribers.
type Broadcaster interface {
	Publish(a *store.Alert)
}

// Correlator is the alert lifecycle state machine. Safe for concurrent use.
type Correlator struct {
	store      *store.Store
	dispatcher Dispatcher
	stream     Broadcaster // optional, may be nil

	mu      sync.Mutex
	targets map[string]*sync.Mutex
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Correlator. stream may be nil when no live feed is wired.
func New(st *store.Store, d Dispatcher, stream Broadcaster) *Correlator {
	return &Correlator{
		store:      st,
		dispatcher: d,
		stream:     stream,
		targets:    make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// OnFailure handles a failed check result for target. If the target already
// has a live alert the report is deduplicated; otherwise a new ERROR alert
// is opened and dispatched.
func (c *Correlator) OnFailure(ctx context.Context, target string, eventID uint, f Failure) error {
	lock := c.targetLock(target)
	lock.Lock()
	defer lock.Unlock()

	existing, err := c.store.OpenAlertByTarget(ctx, target)
	if err == nil {
		slog.Info("correlator: incident already tracked, suppressing duplicate",
			"target", target, "alert_id", existing.ID)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("correlator: check open alert: %w", err)
	}

	alert := &store.Alert{
		EventID:   eventID,
		Kind:      store.KindError,
		Status:    store.StatusOpen,
		TargetURL: target,
		Message:   failureMessage(f),
	}
	if err := c.store.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("correlator: open alert: %w", err)
	}

	slog.Warn("correlator: alert opened",
		"alert_id", alert.ID, "target", target, "message", alert.Message)

	c.dispatcher.Dispatch(ctx, alert)
	c.publish(alert)
	return nil
}

// OnSuccess handles a successful check result for target. With no live alert
// it is a no-op. Otherwise every live alert for the target is resolved and a
// RECOVERY alert — born RESOLVED, purely informational — is created and
// dispatched.
func (c *Correlator) OnSuccess(ctx context.Context, target string) error {
	lock := c.targetLock(target)
	lock.Lock()
	defer lock.Unlock()

	existing, err := c.store.OpenAlertByTarget(ctx, target)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("correlator: check open alert: %w", err)
	}

	resolved, err := c.store.ResolveOpenAlerts(ctx, target)
	if err != nil {
		return fmt.Errorf("correlator: resolve alerts: %w", err)
	}

	slog.Info("correlator: recovery detected",
		"target", target, "resolved_alerts", resolved)

	now := c.now()
	recovery := &store.Alert{
		EventID:    c.recoveryEventID(ctx, target, existing),
		Kind:       store.KindRecovery,
		Status:     store.StatusResolved,
		TargetURL:  target,
		Message:    recoveryMessage,
		ResolvedAt: &now,
	}
	if err := c.store.CreateAlert(ctx, recovery); err != nil {
		return fmt.Errorf("correlator: create recovery alert: %w", err)
	}

	c.dispatcher.Dispatch(ctx, recovery)
	c.publish(recovery)
	return nil
}

// recoveryEventID links the recovery alert to the newest event for target —
// normally the success report that triggered it. Falls back to the resolved
// alert's own event when no event is found.
func (c *Correlator) recoveryEventID(ctx context.Context, target string, resolved *store.Alert) uint {
	events, err := c.store.RecentEventsByTarget(ctx, target, 1)
	if err != nil || len(events) == 0 {
		return resolved.EventID
	}
	return events[0].ID
}

// failureMessage words the alert: explicit error text wins, then the HTTP
// status, then a generic no-response note.
func failureMessage(f Failure) string {
	switch {
	case f.ErrorMessage != nil && *f.ErrorMessage != "":
		return *f.ErrorMessage
	case f.StatusCode != nil:
		return fmt.Sprintf("HTTP %d response", *f.StatusCode)
	default:
		return "no response"
	}
}

// targetLock returns the mutex serializing alert transitions for target.
func (c *Correlator) targetLock(target string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.targets[target]
	if !ok {
		m = &sync.Mutex{}
		c.targets[target] = m
	}
	return m
}

func (c *Correlator) publish(a *store.Alert) {
	if c.stream != nil {
		c.stream.Publish(a)
	}
}
