package correlator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

const target = "https://svc.example"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return st
}

// recordingDispatcher remembers every alert it was asked to deliver.
type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []store.Alert
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, a *store.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, *a)
}

func (d *recordingDispatcher) dispatched() []store.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]store.Alert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func setup(t *testing.T) (*store.Store, *recordingDispatcher, *Correlator) {
	t.Helper()
	st := newTestStore(t)
	d := &recordingDispatcher{}
	return st, d, New(st, d, nil)
}

func TestOnFailure_OpensAlertOnce(t *testing.T) {
	st, d, c := setup(t)
	ctx := context.Background()

	if err := c.OnFailure(ctx, target, 1, Failure{StatusCode: intp(500)}); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	// Second report during the same incident: dedup, no new alert.
	if err := c.OnFailure(ctx, target, 2, Failure{StatusCode: intp(500)}); err != nil {
		t.Fatalf("OnFailure (dup): %v", err)
	}

	open, err := st.ListAlerts(ctx, store.StatusOpen)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open alerts: got %d, want 1", len(open))
	}
	if open[0].Kind != store.KindError {
		t.Errorf("kind: got %q, want ERROR", open[0].Kind)
	}
	if got := d.dispatched(); len(got) != 1 {
		t.Errorf("dispatched: got %d, want 1 — dedup hits must not notify", len(got))
	}
}

func TestOnFailure_DedupCoversAckAlerts(t *testing.T) {
	st, d, c := setup(t)
	ctx := context.Background()

	if err := c.OnFailure(ctx, target, 1, Failure{}); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	open, _ := st.ListAlerts(ctx, store.StatusOpen)
	if _, err := st.UpdateAlertStatus(ctx, open[0].ID, store.StatusAck); err != nil {
		t.Fatalf("UpdateAlertStatus: %v", err)
	}

	if err := c.OnFailure(ctx, target, 2, Failure{}); err != nil {
		t.Fatalf("OnFailure after ACK: %v", err)
	}
	all, _ := st.ListAlerts(ctx, "")
	if len(all) != 1 {
		t.Errorf("alerts: got %d, want 1 — ACK still tracks the incident", len(all))
	}
	if got := d.dispatched(); len(got) != 1 {
		t.Errorf("dispatched: got %d, want 1", len(got))
	}
}

func TestOnFailure_MessageDerivation(t *testing.T) {
	cases := []struct {
		name string
		f    Failure
		want string
	}{
		{"explicit error wins", Failure{StatusCode: intp(500), ErrorMessage: strp("connection refused")}, "connection refused"},
		{"status code", Failure{StatusCode: intp(503)}, "HTTP 503 response"},
		{"nothing", Failure{}, "no response"},
		{"empty error falls through", Failure{StatusCode: intp(404), ErrorMessage: strp("")}, "HTTP 404 response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureMessage(tc.f); got != tc.want {
				t.Errorf("failureMessage: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOnSuccess_NoOpenAlertIsNoop(t *testing.T) {
	st, d, c := setup(t)
	ctx := context.Background()

	if err := c.OnSuccess(ctx, target); err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}
	all, _ := st.ListAlerts(ctx, "")
	if len(all) != 0 {
		t.Errorf("alerts: got %d, want 0", len(all))
	}
	if got := d.dispatched(); len(got) != 0 {
		t.Errorf("dispatched: got %d, want 0", len(got))
	}
}

func TestOnSuccess_ResolvesAndEmitsRecovery(t *testing.T) {
	st, d, c := setup(t)
	ctx := context.Background()

	ev := &store.Event{TargetURL: target, IsSuccess: false, Timestamp: time.Now().UTC()}
	if err := st.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if err := c.OnFailure(ctx, target, ev.ID, Failure{StatusCode: intp(500)}); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}

	if err := c.OnSuccess(ctx, target); err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}

	// Every previously open alert is resolved.
	open, _ := st.ListAlerts(ctx, store.StatusOpen)
	if len(open) != 0 {
		t.Fatalf("open alerts after recovery: got %d, want 0", len(open))
	}

	all, _ := st.ListAlerts(ctx, "")
	if len(all) != 2 {
		t.Fatalf("alerts: got %d, want 2 (error + recovery)", len(all))
	}

	var recovery *store.Alert
	for i := range all {
		if all[i].Kind == store.KindRecovery {
			recovery = &all[i]
		}
	}
	if recovery == nil {
		t.Fatal("no RECOVERY alert created")
	}
	if recovery.Status != store.StatusResolved {
		t.Errorf("recovery status: got %q, want RESOLVED — it never passes through OPEN", recovery.Status)
	}
	if recovery.ResolvedAt == nil {
		t.Error("recovery resolved_at: not stamped")
	}

	// Both the error alert and the recovery alert were dispatched.
	if got := d.dispatched(); len(got) != 2 {
		t.Errorf("dispatched: got %d, want 2", len(got))
	}
}

func TestOnSuccess_SecondSuccessIsNoop(t *testing.T) {
	st, d, c := setup(t)
	ctx := context.Background()

	if err := c.OnFailure(ctx, target, 1, Failure{}); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	if err := c.OnSuccess(ctx, target); err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}
	if err := c.OnSuccess(ctx, target); err != nil {
		t.Fatalf("OnSuccess (second): %v", err)
	}

	all, _ := st.ListAlerts(ctx, "")
	if len(all) != 2 {
		t.Errorf("alerts: got %d, want 2 — repeated success must not emit more recoveries", len(all))
	}
	if got := d.dispatched(); len(got) != 2 {
		t.Errorf("dispatched: got %d, want 2", len(got))
	}
}

func TestOnFailure_ConcurrentReportsOpenOneAlert(t *testing.T) {
	st, _, c := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_ = c.OnFailure(ctx, target, id, Failure{StatusCode: intp(500)})
		}(uint(i + 1))
	}
	wg.Wait()

	open, err := st.ListAlerts(ctx, store.StatusOpen)
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open alerts after concurrent reports: got %d, want exactly 1", len(open))
	}
}

func TestIncidentCycle_ReopensAfterRecovery(t *testing.T) {
	st, _, c := setup(t)
	ctx := context.Background()

	if err := c.OnFailure(ctx, target, 1, Failure{StatusCode: intp(500)}); err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	if err := c.OnSuccess(ctx, target); err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}
	// New incident after recovery opens a fresh alert.
	if err := c.OnFailure(ctx, target, 2, Failure{StatusCode: intp(502)}); err != nil {
		t.Fatalf("OnFailure (second incident): %v", err)
	}

	open, _ := st.ListAlerts(ctx, store.StatusOpen)
	if len(open) != 1 {
		t.Fatalf("open alerts: got %d, want 1", len(open))
	}
	if open[0].Message != "HTTP 502 response" {
		t.Errorf("message: got %q, want HTTP 502 response", open[0].Message)
	}
}
