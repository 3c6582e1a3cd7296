package store

import "time"

// Alert kinds.
const (
	KindError    = "ERROR"
	KindWarning  = "WARNING"
	KindRecovery = "RECOVERY"
)

// Alert statuses.
const (
	StatusOpen     = "OPEN"
	StatusAck      = "ACK"
	StatusResolved = "RESOLVED"
)

// Notification attempt outcomes.
const (
	AttemptSent   = "SENT"
	AttemptFailed = "FAILED"
)

// ValidStatus reports whether s is a member of the fixed alert status set.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusAck, StatusResolved:
		return true
	}
	return false
}

// Event is one stored probe outcome. Immutable once created.
type Event struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TargetURL      string    `gorm:"index;not null" json:"target_url"`
	StatusCode     *int      `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	IsSuccess      bool      `json:"is_success"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// Alert is one incident lifecycle for a target. The triggering event is
// referenced, never owned: deleting history must not cascade into alerts.
type Alert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EventID    uint       `gorm:"index" json:"event_id"`
	Kind       string     `gorm:"not null" json:"kind"`
	Status     string     `gorm:"not null" json:"status"`
	TargetURL  string     `gorm:"index;not null" json:"target_url"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Open reports whether the alert still tracks a live incident.
func (a *Alert) Open() bool {
	return a.Status == StatusOpen || a.Status == StatusAck
}

// NotificationAttempt is one delivery try on one channel. Append-only.
type NotificationAttempt struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AlertID      uint      `gorm:"index;not null" json:"alert_id"`
	Channel      string    `gorm:"not null" json:"channel"`
	Status       string    `gorm:"not null" json:"status"`
	ResponseCode *string   `json:"response_code,omitempty"`
	MessageID    *string   `json:"message_id,omitempty"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	AttemptedAt  time.Time `json:"attempted_at"`
}
