package transmitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulsewatch/pulsewatch/agent/internal/config"
	"github.com/pulsewatch/pulsewatch/pkg/types"
)

// eventsPath is the server route check results are submitted to.
const eventsPath = "/api/v1/events"

// Transmitter posts check results to pulsewatch-server with bounded retry.
type Transmitter struct {
	endpoint    string
	authHeader  string
	auth        config.AuthConfig
	maxRetries  int
	backoffBase float64

	client *http.Client
	sleep  func(time.Duration) // injectable for tests
}

// rejectionError is a delivery that reached the server but was refused.
// It is never retried — the payload will not get better.
type rejectionError struct {
	status int
	body   string
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("server rejected submission: HTTP %d: %s", e.status, e.body)
}

// New creates a Transmitter from the agent configuration.
func New(cfg config.AgentConfig) *Transmitter {
	return &Transmitter{
		endpoint:    strings.TrimRight(cfg.ServerURL, "/") + eventsPath,
		authHeader:  cfg.Auth.EffectiveHeader(),
		auth:        cfg.Auth,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		sleep:       time.Sleep,
	}
}

// Deliver sends one check result to the server. It returns nil once the
// server confirms creation. Connection failures are retried with exponential
// backoff; after max_retries retries the result is given up on and the last
// error returned. Any other failure is returned after a single attempt.
func (t *Transmitter) Deliver(ctx context.Context, result *types.CheckResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("transmitter: encode result: %w", err)
	}

	for attempt := 0; ; attempt++ {
		err := t.send(ctx, body)
		if err == nil {
			slog.Info("transmitter: result delivered",
				"target", result.TargetURL, "attempt", attempt+1)
			return nil
		}

		var rej *rejectionError
		if errors.As(err, &rej) {
			slog.Warn("transmitter: submission rejected, not retrying",
				"target", result.TargetURL, "status", rej.status)
			return fmt.Errorf("transmitter: %w", err)
		}
		if !isConnectionError(err) {
			slog.Error("transmitter: delivery failed, not retrying",
				"target", result.TargetURL, "err", err)
			return fmt.Errorf("transmitter: %w", err)
		}

		if attempt >= t.maxRetries {
			slog.Error("transmitter: retries exhausted, dropping result",
				"target", result.TargetURL, "retries", t.maxRetries, "err", err)
			return fmt.Errorf("transmitter: gave up after %d retries: %w", t.maxRetries, err)
		}

		wait := t.backoff(attempt)
		slog.Warn("transmitter: connection failed, will retry",
			"target", result.TargetURL,
			"retry", attempt+1,
			"max_retries", t.maxRetries,
			"retry_in", wait,
			"err", err,
		)
		t.sleep(wait)
	}
}

// send performs one POST of the encoded result.
func (t *Transmitter) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := t.auth.Key(); key != "" {
		req.Header.Set(t.authHeader, key)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &rejectionError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	return nil
}

// backoff returns the wait before retry number attempt+1: base^attempt seconds.
func (t *Transmitter) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(t.backoffBase, float64(attempt)) * float64(time.Second))
}

// isConnectionError reports whether err is a connection-level failure worth
// retrying: refused, reset, timeout or DNS. Other transport errors (TLS
// handshake, redirect policy, malformed response) fail the delivery after a
// single attempt.
func isConnectionError(err error) bool {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return false
	}
	if uerr.Timeout() {
		return true
	}
	var operr *net.OpError
	var dnserr *net.DNSError
	return errors.As(uerr.Err, &operr) || errors.As(uerr.Err, &dnserr)
}
