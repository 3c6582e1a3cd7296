package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Sentinel errors returned by lookups and transitions.
var (
	ErrNotFound = errors.New("store: record not found")
	ErrResolved = errors.New("store: alert is resolved and cannot transition")
)

// openAlertIndex enforces at most one OPEN/ACK alert per target at the
// storage level, backing the correlator's in-process serialization.
const openAlertIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_target
ON alerts(target_url) WHERE status IN ('OPEN', 'ACK')`

// Store wraps the GORM handle and owns all queries.
type Store struct {
	db  *gorm.DB
	now func() time.Time // injectable for deterministic tests
}

// Open opens (creating if necessary) the SQLite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	if err := db.AutoMigrate(&Event{}, &Alert{}, &NotificationAttempt{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := db.Exec(openAlertIndex).Error; err != nil {
		return nil, fmt.Errorf("store: create open-alert index: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// --- events -----------------------------------------------------------------

// CreateEvent persists e and fills its ID.
func (s *Store) CreateEvent(ctx context.Context, e *Event) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("store: create event: %w", err)
	}
	return nil
}

// EventByID returns the event with the given id, or ErrNotFound.
func (s *Store) EventByID(ctx context.Context, id uint) (*Event, error) {
	var e Event
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, wrapLookup("event", err)
	}
	return &e, nil
}

// RecentEventsByTarget returns up to limit events for target, newest first.
func (s *Store) RecentEventsByTarget(ctx context.Context, target string, limit int) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("target_url = ?", target).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent events: %w", err)
	}
	return events, nil
}

// --- alerts -----------------------------------------------------------------

// CreateAlert persists a and fills its ID and CreatedAt.
func (s *Store) CreateAlert(ctx context.Context, a *Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("store: create alert: %w", err)
	}
	return nil
}

// AlertByID returns the alert with the given id, or ErrNotFound.
func (s *Store) AlertByID(ctx context.Context, id uint) (*Alert, error) {
	var a Alert
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, wrapLookup("alert", err)
	}
	return &a, nil
}

// OpenAlertByTarget returns the newest OPEN/ACK alert for target, or
// ErrNotFound when the target has no live incident.
func (s *Store) OpenAlertByTarget(ctx context.Context, target string) (*Alert, error) {
	var a Alert
	err := s.db.WithContext(ctx).
		Where("target_url = ? AND status IN ?", target, []string{StatusOpen, StatusAck}).
		Order("created_at DESC, id DESC").
		First(&a).Error
	if err != nil {
		return nil, wrapLookup("open alert", err)
	}
	return &a, nil
}

// ListAlerts returns all alerts, newest first, optionally filtered by status.
func (s *Store) ListAlerts(ctx context.Context, status string) ([]Alert, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var alerts []Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("store: list alerts: %w", err)
	}
	return alerts, nil
}

// UpdateAlertStatus transitions the alert to newStatus and returns the
// updated record. RESOLVED is terminal: a resolved alert returns ErrResolved
// unchanged. Transitioning to RESOLVED stamps resolved_at.
func (s *Store) UpdateAlertStatus(ctx context.Context, id uint, newStatus string) (*Alert, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("store: invalid status %q", newStatus)
	}

	var updated *Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a Alert
		if err := tx.First(&a, id).Error; err != nil {
			return wrapLookup("alert", err)
		}
		if a.Status == StatusResolved {
			return ErrResolved
		}

		a.Status = newStatus
		if newStatus == StatusResolved {
			t := s.now()
			a.ResolvedAt = &t
		}
		if err := tx.Save(&a).Error; err != nil {
			return fmt.Errorf("store: update alert: %w", err)
		}
		updated = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResolveOpenAlerts marks every OPEN/ACK alert for target RESOLVED with
// resolved_at set, returning how many rows changed. Resolving all of them,
// not just the newest, self-heals any prior inconsistency.
func (s *Store) ResolveOpenAlerts(ctx context.Context, target string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&Alert{}).
		Where("target_url = ? AND status IN ?", target, []string{StatusOpen, StatusAck}).
		Updates(map[string]any{
			"status":      StatusResolved,
			"resolved_at": s.now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("store: resolve open alerts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// --- notification attempts --------------------------------------------------

// CreateAttempt persists one delivery attempt record.
func (s *Store) CreateAttempt(ctx context.Context, att *NotificationAttempt) error {
	if att.AttemptedAt.IsZero() {
		att.AttemptedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(att).Error; err != nil {
		return fmt.Errorf("store: create attempt: %w", err)
	}
	return nil
}

// AttemptsByAlert returns all delivery attempts for an alert, newest first.
func (s *Store) AttemptsByAlert(ctx context.Context, alertID uint) ([]NotificationAttempt, error) {
	var atts []NotificationAttempt
	err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("attempted_at DESC, id DESC").
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("store: attempts by alert: %w", err)
	}
	return atts, nil
}

// RecentAttempts returns up to limit delivery attempts, newest first.
func (s *Store) RecentAttempts(ctx context.Context, limit int) ([]NotificationAttempt, error) {
	var atts []NotificationAttempt
	err := s.db.WithContext(ctx).
		Order("attempted_at DESC, id DESC").
		Limit(limit).
		Find(&atts).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent attempts: %w", err)
	}
	return atts, nil
}

func wrapLookup(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("store: load %s: %w", what, err)
}
