package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pulsewatch/pulsewatch/pkg/types"
)

// Prober checks one target URL. It holds a single HTTP client reused across
// check cycles.
type Prober struct {
	target  string
	timeout time.Duration
	client  *http.Client
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Prober for target with the given per-request timeout.
func New(target string, timeout time.Duration) *Prober {
	return &Prober{
		target:  target,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Check performs one probe of the target and always returns a CheckResult —
// a failed request is a result, not an error. The caller decides what to do
// with it (normally: hand it to the transmitter).
func (p *Prober) Check(ctx context.Context) *types.CheckResult {
	result := &types.CheckResult{
		TargetURL: p.target,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		msg := fmt.Sprintf("invalid target url: %v", err)
		result.ErrorMessage = &msg
		slog.Error("probe: bad target", "target", p.target, "err", err)
		return result
	}

	start := p.now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.recordFailure(result, err)
		return result
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused. The body content is irrelevant.
	_, _ = io.Copy(io.Discard, resp.Body)

	elapsed := int(p.now().Sub(start) / time.Millisecond)
	code := resp.StatusCode
	result.StatusCode = &code
	result.ResponseTimeMs = elapsed
	result.IsSuccess = code >= 200 && code < 400

	slog.Info("probe: check complete",
		"target", p.target,
		"status", code,
		"elapsed_ms", elapsed,
		"success", result.IsSuccess,
	)
	return result
}

// recordFailure fills result with the error classification for a request
// that never produced an HTTP response.
func (p *Prober) recordFailure(result *types.CheckResult, err error) {
	var msg string

	var uerr *url.Error
	switch {
	case errors.As(err, &uerr) && uerr.Timeout():
		// The request ran for the full timeout before being abandoned.
		result.ResponseTimeMs = int(p.timeout / time.Millisecond)
		msg = fmt.Sprintf("request timed out after %s", p.timeout)
		slog.Warn("probe: timeout", "target", p.target, "timeout", p.timeout)
	default:
		msg = fmt.Sprintf("connection error: %v", err)
		slog.Error("probe: connection failed", "target", p.target, "err", err)
	}

	result.ErrorMessage = &msg
}
