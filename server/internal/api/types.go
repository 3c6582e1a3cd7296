package api

import "github.com/pulsewatch/pulsewatch/server/internal/store"

// eventRequest is the inbound submission body. Pointer fields distinguish
// "absent" from zero values so validation can name the missing field.
type eventRequest struct {
	TargetURL      *string `json:"target_url"`
	StatusCode     *int    `json:"status_code"`
	ResponseTimeMs *int    `json:"response_time_ms"`
	IsSuccess      *bool   `json:"is_success"`
	Timestamp      *string `json:"timestamp"`
	ErrorMessage   *string `json:"error_message"`
}

// statusUpdateRequest is the PATCH /alerts/{id} body.
type statusUpdateRequest struct {
	Status *string `json:"status"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// AlertListResponse is the payload for GET /api/v1/alerts.
type AlertListResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Alerts  []store.Alert `json:"alerts"`
}

// AlertDetailResponse is the payload for GET /api/v1/alerts/{id} and the
// PATCH response.
type AlertDetailResponse struct {
	Success       bool                        `json:"success"`
	Alert         *store.Alert                `json:"alert"`
	Notifications []store.NotificationAttempt `json:"notifications,omitempty"`
}

// AttemptListResponse is the payload for GET /api/v1/notifications.
type AttemptListResponse struct {
	Success bool                        `json:"success"`
	Count   int                         `json:"count"`
	Logs    []store.NotificationAttempt `json:"logs"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
