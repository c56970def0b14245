package sim

import (
	"testing"
	"time"

	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/telemetry"
)

// MockControlWriter records control-surface callbacks.
type MockControlWriter struct {
	MockSinkWriter
	Admin    []bool
	Injector func(rules.Spec)
	Closed   bool
}

func (w *MockControlWriter) SetAdminStatus(listening bool) {
	w.Admin = append(w.Admin, listening)
}

func (w *MockControlWriter) SetRuleInjector(fn func(rules.Spec)) {
	w.Injector = fn
}

func (w *MockControlWriter) Close() error {
	w.Closed = true
	return nil
}

func TestMultiWriterFanOut(t *testing.T) {
	a := &MockSinkWriter{}
	b := &MockWriter{}
	mw := NewMultiWriter(a, b)

	row := telemetry.ActorRow{RunID: "r1", ActorID: "adversary-1", Timestamp: time.Unix(0, 0)}
	if err := mw.Write(row); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(a.Rows) != 1 || len(b.Rows) != 1 {
		t.Fatalf("expected row in both writers, got %d and %d", len(a.Rows), len(b.Rows))
	}

	if err := mw.WriteBatch([]telemetry.ActorRow{row, row}); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if len(a.Rows) != 3 || len(b.Rows) != 3 {
		t.Fatalf("expected batch in both writers, got %d and %d", len(a.Rows), len(b.Rows))
	}

	// only writers with the matching capability receive events and alerts
	if err := mw.WriteEvent(telemetry.EventRow{SensorID: "cam-1"}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := mw.WriteAlert(telemetry.AlertRow{RuleID: "hc"}); err != nil {
		t.Fatalf("write alert: %v", err)
	}
	if err := mw.WriteRun(telemetry.RunRow{RunID: "r1"}); err != nil {
		t.Fatalf("write run: %v", err)
	}
	if len(a.Events) != 1 || len(a.Alerts) != 1 || len(a.Runs) != 1 {
		t.Fatalf("sink writer missed rows: %d events, %d alerts, %d runs", len(a.Events), len(a.Alerts), len(a.Runs))
	}
}

func TestMultiWriterControlForwarding(t *testing.T) {
	ctrl := &MockControlWriter{}
	plain := &MockWriter{}
	mw := NewMultiWriter(ctrl, plain)

	mw.SetAdminStatus(true)
	if len(ctrl.Admin) != 1 || !ctrl.Admin[0] {
		t.Fatalf("admin status not forwarded: %+v", ctrl.Admin)
	}

	var injected []rules.Spec
	mw.SetRuleInjector(func(s rules.Spec) { injected = append(injected, s) })
	if ctrl.Injector == nil {
		t.Fatalf("rule injector not forwarded")
	}
	ctrl.Injector(rules.Spec{ID: "hc", Kind: rules.KindHighConfidenceSighting})
	if len(injected) != 1 || injected[0].ID != "hc" {
		t.Fatalf("unexpected injection: %+v", injected)
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ctrl.Closed {
		t.Fatalf("close not forwarded")
	}
}
