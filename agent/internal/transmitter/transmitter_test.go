package transmitter

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/agent/internal/config"
	"github.com/pulsewatch/pulsewatch/pkg/types"
)

// fakeTransport counts calls and returns a scripted outcome per call.
type fakeTransport struct {
	calls    int
	statuses []int // status per call; 0 means simulate a connection error
	err      error // returned instead of the dial error when status is 0
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	status := f.statuses[idx]
	if status == 0 {
		if f.err != nil {
			return nil, f.err
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func newTransmitter(ft *fakeTransport, maxRetries int, base float64) (*Transmitter, *[]time.Duration) {
	cfg := config.AgentConfig{
		ServerURL:      "http://backend.test",
		RequestTimeout: time.Second,
		MaxRetries:     maxRetries,
		BackoffBase:    base,
	}
	t := New(cfg)
	t.client = &http.Client{Transport: ft}

	var sleeps []time.Duration
	t.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return t, &sleeps
}

func result() *types.CheckResult {
	return &types.CheckResult{
		TargetURL:      "https://svc.example",
		ResponseTimeMs: 120,
		Timestamp:      "2024-01-01T00:00:00Z",
	}
}

func TestDeliver_Success(t *testing.T) {
	ft := &fakeTransport{statuses: []int{http.StatusCreated}}
	tr, sleeps := newTransmitter(ft, 3, 2)

	if err := tr.Deliver(context.Background(), result()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if ft.calls != 1 {
		t.Errorf("attempts: got %d, want 1", ft.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps: got %v, want none", *sleeps)
	}
}

func TestDeliver_RetryBound(t *testing.T) {
	// A permanently unreachable endpoint: the initial attempt plus three
	// retries, backed off 1s, 2s, 4s with base 2.
	ft := &fakeTransport{statuses: []int{0}}
	tr, sleeps := newTransmitter(ft, 3, 2)

	err := tr.Deliver(context.Background(), result())
	if err == nil {
		t.Fatal("Deliver: expected error against unreachable endpoint")
	}
	if ft.calls != 4 {
		t.Errorf("attempts: got %d, want 4 (1 initial + 3 retries)", ft.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps: got %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep[%d]: got %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestDeliver_RecoversMidRetry(t *testing.T) {
	ft := &fakeTransport{statuses: []int{0, 0, http.StatusCreated}}
	tr, sleeps := newTransmitter(ft, 3, 2)

	if err := tr.Deliver(context.Background(), result()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if ft.calls != 3 {
		t.Errorf("attempts: got %d, want 3", ft.calls)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps: got %d, want 2", len(*sleeps))
	}
}

func TestDeliver_RejectionIsNotRetried(t *testing.T) {
	ft := &fakeTransport{statuses: []int{http.StatusUnauthorized}}
	tr, sleeps := newTransmitter(ft, 3, 2)

	err := tr.Deliver(context.Background(), result())
	if err == nil {
		t.Fatal("Deliver: expected error on HTTP 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q does not carry the status", err)
	}
	if ft.calls != 1 {
		t.Errorf("attempts: got %d, want 1 — rejections must not retry", ft.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps: got %v, want none", *sleeps)
	}
}

// TestDeliver_TransportErrorIsNotRetried covers transport failures that are
// not connection-level: a TLS handshake failure is permanent for the target,
// so backing off and retrying cannot help.
func TestDeliver_TransportErrorIsNotRetried(t *testing.T) {
	ft := &fakeTransport{
		statuses: []int{0},
		err:      errors.New("tls: failed to verify certificate"),
	}
	tr, sleeps := newTransmitter(ft, 3, 2)

	err := tr.Deliver(context.Background(), result())
	if err == nil {
		t.Fatal("Deliver: expected error on TLS failure")
	}
	if ft.calls != 1 {
		t.Errorf("attempts: got %d, want 1 — non-connection errors must not retry", ft.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps: got %v, want none", *sleeps)
	}
}

func TestDeliver_TimeoutIsRetried(t *testing.T) {
	ft := &fakeTransport{
		statuses: []int{0, http.StatusCreated},
		err:      &net.OpError{Op: "read", Net: "tcp", Err: &timeoutError{}},
	}
	tr, sleeps := newTransmitter(ft, 3, 2)

	if err := tr.Deliver(context.Background(), result()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if ft.calls != 2 {
		t.Errorf("attempts: got %d, want 2", ft.calls)
	}
	if len(*sleeps) != 1 {
		t.Errorf("sleeps: got %d, want 1", len(*sleeps))
	}
}

type timeoutError struct{}

func (*timeoutError) Error() string   { return "i/o timeout" }
func (*timeoutError) Timeout() bool   { return true }
func (*timeoutError) Temporary() bool { return true }

func TestDeliver_APIKeyHeader(t *testing.T) {
	t.Setenv("PULSE_TR_KEY", "secret-xyz")

	var gotKey string
	ft := &headerCapture{apiHeader: "x-api-key", got: &gotKey}
	cfg := config.AgentConfig{
		ServerURL:      "http://backend.test",
		RequestTimeout: time.Second,
		MaxRetries:     0,
		BackoffBase:    2,
		Auth:           config.AuthConfig{KeyEnv: "PULSE_TR_KEY"},
	}
	tr := New(cfg)
	tr.client = &http.Client{Transport: ft}
	tr.sleep = func(time.Duration) {}

	if err := tr.Deliver(context.Background(), result()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if gotKey != "secret-xyz" {
		t.Errorf("api key header: got %q, want secret-xyz", gotKey)
	}
}

type headerCapture struct {
	apiHeader string
	got       *string
}

func (h *headerCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	*h.got = req.Header.Get(h.apiHeader)
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}
