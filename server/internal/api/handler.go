package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/pkg/types"
	"github.com/pulsewatch/pulsewatch/server/internal/correlator"
	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

const (
	serviceName    = "pulsewatch"
	serviceVersion = "1.0.0"

	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// Correlator is the slice of the alert state machine the ingest path drives.
type Correlator interface {
	OnFailure(ctx context.Context, target string, eventID uint, f correlator.Failure) error
	OnSuccess(ctx context.Context, target string) error
}

// Handler serves all /api/v1/* endpoints.
type Handler struct {
	store *store.Store
	corr  Correlator
	r     *mux.Router
}

// New creates a Handler and registers all routes. authMW guards the event
// submission endpoint only — the query surface is for operators behind the
// perimeter, matching the submission contract.
func New(st *store.Store, corr Correlator, authMW func(http.Handler) http.Handler) http.Handler {
	h := &Handler{store: st, corr: corr, r: mux.NewRouter()}

	api := h.r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	events := api.PathPrefix("/events").Subrouter()
	events.Use(authMW)
	events.HandleFunc("", h.createEvent).Methods(http.MethodPost)

	api.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id:[0-9]+}", h.getAlert).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id:[0-9]+}", h.updateAlertStatus).Methods(http.MethodPatch)
	api.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.r.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — a liveness descriptor.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	})
}

// createEvent handles POST /api/v1/events — the ingestion gate. The check
// result is persisted unconditionally; the correlator then decides whether
// an alert opens or resolves. Notification failures never surface here.
func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if field := missingField(&req); field != "" {
		slog.Warn("api: submission missing field", "field", field)
		jsonErr(w, http.StatusBadRequest, "missing required field: "+field)
		return
	}

	ts, err := time.Parse(time.RFC3339, *req.Timestamp)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid field: timestamp must be RFC 3339")
		return
	}

	event := &store.Event{
		TargetURL:      *req.TargetURL,
		StatusCode:     req.StatusCode,
		ResponseTimeMs: *req.ResponseTimeMs,
		IsSuccess:      *req.IsSuccess,
		ErrorMessage:   req.ErrorMessage,
		Timestamp:      ts,
	}
	ctx := r.Context()
	if err := h.store.CreateEvent(ctx, event); err != nil {
		slog.Error("api: persist event failed", "target", event.TargetURL, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("api: event stored",
		"event_id", event.ID, "target", event.TargetURL, "success", event.IsSuccess)

	if event.IsSuccess {
		err = h.corr.OnSuccess(ctx, event.TargetURL)
	} else {
		err = h.corr.OnFailure(ctx, event.TargetURL, event.ID, correlator.Failure{
			StatusCode:   req.StatusCode,
			ErrorMessage: req.ErrorMessage,
		})
	}
	if err != nil {
		slog.Error("api: correlation failed", "event_id", event.ID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResp(w, http.StatusCreated, types.SubmitResponse{Success: true, EventID: event.ID})
}

// listAlerts returns GET /api/v1/alerts — all alerts, optionally filtered by
// an exact status.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))
	if status != "" && !store.ValidStatus(status) {
		jsonErr(w, http.StatusBadRequest, "invalid status filter: must be one of OPEN, ACK, RESOLVED")
		return
	}

	alerts, err := h.store.ListAlerts(r.Context(), status)
	if err != nil {
		slog.Error("api: list alerts failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResp(w, http.StatusOK, AlertListResponse{Success: true, Count: len(alerts), Alerts: alerts})
}

// getAlert returns GET /api/v1/alerts/{id} — one alert plus its delivery
// attempts.
func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	ctx := r.Context()

	alert, err := h.store.AlertByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		slog.Error("api: load alert failed", "alert_id", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	attempts, err := h.store.AttemptsByAlert(ctx, id)
	if err != nil {
		slog.Error("api: load attempts failed", "alert_id", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResp(w, http.StatusOK, AlertDetailResponse{
		Success:       true,
		Alert:         alert,
		Notifications: attempts,
	})
}

// updateAlertStatus handles PATCH /api/v1/alerts/{id} — the manual
// acknowledgement/resolution surface. Only OPEN, ACK and RESOLVED are
// admissible, and RESOLVED alerts reject all further transitions.
func (h *Handler) updateAlertStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == nil {
		jsonErr(w, http.StatusBadRequest, "missing required field: status")
		return
	}

	newStatus := strings.ToUpper(*req.Status)
	if !store.ValidStatus(newStatus) {
		jsonErr(w, http.StatusBadRequest, "invalid status: must be one of OPEN, ACK, RESOLVED")
		return
	}

	id := pathID(r)
	updated, err := h.store.UpdateAlertStatus(r.Context(), id, newStatus)
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "alert not found")
		return
	case errors.Is(err, store.ErrResolved):
		jsonErr(w, http.StatusConflict, "alert is resolved and cannot change status")
		return
	case err != nil:
		slog.Error("api: update alert failed", "alert_id", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("api: alert status changed", "alert_id", id, "status", newStatus)
	jsonResp(w, http.StatusOK, AlertDetailResponse{Success: true, Alert: updated})
}

// listNotifications returns GET /api/v1/notifications — recent delivery
// attempts, newest first, bounded by ?limit (default 50, capped at 500).
func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultAttemptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "invalid limit: must be a positive integer")
			return
		}
		if n > maxAttemptLimit {
			n = maxAttemptLimit
		}
		limit = n
	}

	logs, err := h.store.RecentAttempts(r.Context(), limit)
	if err != nil {
		slog.Error("api: list notifications failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResp(w, http.StatusOK, AttemptListResponse{Success: true, Count: len(logs), Logs: logs})
}

// --- helpers ----------------------------------------------------------------

// missingField returns the name of the first absent required field, or "".
func missingField(req *eventRequest) string {
	switch {
	case req.TargetURL == nil:
		return "target_url"
	case req.ResponseTimeMs == nil:
		return "response_time_ms"
	case req.IsSuccess == nil:
		return "is_success"
	case req.Timestamp == nil:
		return "timestamp"
	}
	return ""
}

// pathID extracts the {id} route variable. The route pattern guarantees it
// parses.
func pathID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id)
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
