package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/redteam"
	"gauntlet-sim/internal/rng"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sensor"
	"gauntlet-sim/internal/telemetry"
)

// MockWriter collects actor rows for validation.
type MockWriter struct {
	Rows []telemetry.ActorRow
}

func (w *MockWriter) Write(row telemetry.ActorRow) error {
	w.Rows = append(w.Rows, row)
	return nil
}

// MockSinkWriter additionally records events, alerts, and runs.
type MockSinkWriter struct {
	MockWriter
	Events []telemetry.EventRow
	Alerts []telemetry.AlertRow
	Runs   []telemetry.RunRow
}

func (w *MockSinkWriter) WriteEvent(row telemetry.EventRow) error {
	w.Events = append(w.Events, row)
	return nil
}

func (w *MockSinkWriter) WriteAlert(row telemetry.AlertRow) error {
	w.Alerts = append(w.Alerts, row)
	return nil
}

func (w *MockSinkWriter) WriteRun(row telemetry.RunRow) error {
	w.Runs = append(w.Runs, row)
	return nil
}

var (
	_ TelemetryWriter = (*MockWriter)(nil)
	_ EventWriter     = (*MockSinkWriter)(nil)
	_ AlertWriter     = (*MockSinkWriter)(nil)
	_ RunWriter       = (*MockSinkWriter)(nil)
)

func fixedClock() time.Time { return time.Unix(0, 0).UTC() }

// samePointPath builds a path that loiters at p for n ticks before a far
// final waypoint, keeping the walker in place without reaching the end.
func samePointPath(p geo.Point, n int) []geo.Point {
	path := make([]geo.Point, 0, n+1)
	for i := 0; i < n; i++ {
		path = append(path, p)
	}
	path = append(path, geo.Point{Lat: p.Lat + 1, Lon: p.Lon + 1})
	return path
}

func testScenario(sensors []sensor.Sensor, specs []rules.Spec) scenario.Scenario {
	return scenario.Scenario{
		Name:    "test-scn",
		Weather: sensor.WeatherClear,
		Entry:   geo.Point{Lat: 48.2, Lon: 16.4},
		Target:  geo.Point{Lat: 48.21, Lon: 16.41},
		POIs: []scenario.POI{
			{Name: "market", Pos: geo.Point{Lat: 48.205, Lon: 16.405}},
		},
		Sensors: sensors,
		Rules:   specs,
	}
}

func TestRunnerStepGeneratesTelemetry(t *testing.T) {
	scn := testScenario(nil, nil)
	writer := &MockWriter{}
	r := NewRunner(RunRequest{
		RunID:     "run-1",
		Round:     1,
		Scenario:  scn,
		Plan:      redteam.PathPlan{Path: samePointPath(scn.Entry, 10)},
		Civilians: 2,
		Seed:      1,
	}, writer, time.Second, rng.New(1), fixedClock)

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	res := r.Step(context.Background())

	if res.Tick != 1 || res.Phase != PhaseRunning {
		t.Fatalf("unexpected tick result: %+v", res)
	}
	if len(writer.Rows) != 3 {
		t.Fatalf("expected rows for 3 actors, got %d", len(writer.Rows))
	}
	if writer.Rows[0].ActorID != "adversary-1" || writer.Rows[0].ActorType != string(actor.TypeAdversary) {
		t.Fatalf("expected adversary row first, got %+v", writer.Rows[0])
	}
	for _, row := range writer.Rows {
		if row.RunID != "run-1" || row.ActorID == "" || row.Tick != 1 {
			t.Fatalf("row has missing fields: %+v", row)
		}
	}
}

func TestRunnerStepBeforeStartIsNoop(t *testing.T) {
	scn := testScenario(nil, nil)
	writer := &MockWriter{}
	r := NewRunner(RunRequest{
		RunID:    "run-idle",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 5)},
		Seed:     1,
	}, writer, time.Second, rng.New(1), fixedClock)

	res := r.Step(context.Background())
	if res.Tick != 0 || res.Phase != PhaseIdle || res.Verdict != "" {
		t.Fatalf("unexpected tick result: %+v", res)
	}
	if len(writer.Rows) != 0 {
		t.Fatalf("expected no rows before start, got %d", len(writer.Rows))
	}
}

func TestRunnerBypassVerdict(t *testing.T) {
	scn := testScenario(nil, nil)
	writer := &MockSinkWriter{}
	r := NewRunner(RunRequest{
		RunID:    "run-bypass",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: []geo.Point{scn.Entry, scn.Target}},
		Seed:     1,
	}, writer, time.Second, rng.New(1), fixedClock)

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	res := r.Step(context.Background())
	if res.Verdict != VerdictBypassed || res.Phase != PhaseBypassed {
		t.Fatalf("expected bypass on path end, got %+v", res)
	}
	if len(res.Events) != 0 || len(writer.Events) != 0 {
		t.Fatalf("bypass tick must not roll detection, got %d events", len(writer.Events))
	}

	// stepping a resolved run changes nothing
	res2 := r.Step(context.Background())
	if res2.Tick != res.Tick || res2.Verdict != VerdictBypassed {
		t.Fatalf("expected terminal no-op, got %+v", res2)
	}
	if got := len(writer.Rows); got != 1 {
		t.Fatalf("expected telemetry from one tick only, got %d rows", got)
	}
}

func TestRunnerDetectionVerdict(t *testing.T) {
	sensors := []sensor.Sensor{{
		ID:       "cam-1",
		Kind:     sensor.KindCamera,
		Pos:      geo.Point{Lat: 48.2, Lon: 16.4},
		RangeM:   500,
		BaseProb: 1.0,
	}}
	specs := []rules.Spec{{
		ID:     "hc",
		Kind:   rules.KindHighConfidenceSighting,
		Params: rules.Params{MinConfidence: 0.5},
	}}
	scn := testScenario(sensors, specs)
	writer := &MockSinkWriter{}
	r := NewRunner(RunRequest{
		RunID:    "run-detect",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 200)},
		Rules:    rules.CompileAll(specs),
		Seed:     42,
	}, writer, time.Second, rng.New(42), fixedClock)

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	var res TickResult
	for i := 0; i < 200; i++ {
		res = r.Step(context.Background())
		if res.Verdict != "" {
			break
		}
	}
	if res.Verdict != VerdictDetected || res.Phase != PhaseDetected {
		t.Fatalf("expected detection verdict, got %+v", res)
	}
	if len(writer.Events) == 0 {
		t.Fatalf("expected at least one event row")
	}
	if len(writer.Alerts) == 0 {
		t.Fatalf("expected at least one alert row")
	}
	alert := writer.Alerts[len(writer.Alerts)-1]
	if alert.RuleID != "hc" || alert.Level != string(rules.LevelCritical) {
		t.Fatalf("unexpected alert row: %+v", alert)
	}
	status := r.Status()
	if status.Verdict != VerdictDetected || status.Alerts == 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(r.AdversaryEvents()) == 0 {
		t.Fatalf("expected adversary sightings to be retained")
	}
}

func TestRunnerDeterministicReplay(t *testing.T) {
	sensors := []sensor.Sensor{{
		ID:       "cam-1",
		Kind:     sensor.KindCamera,
		Pos:      geo.Point{Lat: 48.2, Lon: 16.4},
		RangeM:   500,
		BaseProb: 0.6,
	}}
	scn := testScenario(sensors, nil)
	req := RunRequest{
		RunID:     "run-replay",
		Scenario:  scn,
		Plan:      redteam.PathPlan{Path: samePointPath(scn.Entry, 30)},
		Civilians: 2,
		Seed:      7,
	}
	a := NewRunner(req, &MockWriter{}, time.Second, rng.New(7), fixedClock)
	b := NewRunner(req, &MockWriter{}, time.Second, rng.New(7), fixedClock)
	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 20; i++ {
		ra := a.Step(context.Background())
		rb := b.Step(context.Background())
		if len(ra.Events) != len(rb.Events) {
			t.Fatalf("tick %d: event counts diverged: %d vs %d", i+1, len(ra.Events), len(rb.Events))
		}
		for j := range ra.Events {
			if ra.Events[j] != rb.Events[j] {
				t.Fatalf("tick %d: events diverged: %+v vs %+v", i+1, ra.Events[j], rb.Events[j])
			}
		}
	}
	sa, sb := a.Status(), b.Status()
	if sa.Tick != sb.Tick || sa.Phase != sb.Phase || sa.Alerts != sb.Alerts {
		t.Fatalf("runs diverged: %+v vs %+v", sa, sb)
	}
}

func TestRunnerRunStopped(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:    "run-stop",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 10000)},
		Seed:     1,
	}, &MockWriter{}, 50*time.Millisecond, rng.New(1), fixedClock)

	r.Stop()
	r.Stop() // idempotent

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestRunnerRunContextCanceled(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:    "run-cancel",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 10000)},
		Seed:     1,
	}, &MockWriter{}, 50*time.Millisecond, rng.New(1), fixedClock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerRunMaxTicks(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:    "run-maxticks",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 10000)},
		Seed:     1,
		MaxTicks: 3,
	}, &MockWriter{}, time.Millisecond, rng.New(1), fixedClock)

	_, err := r.Run(context.Background())
	if err == nil || errors.Is(err, ErrStopped) {
		t.Fatalf("expected max tick error, got %v", err)
	}
	if got := r.Status().Tick; got != 3 {
		t.Fatalf("expected 3 ticks, got %d", got)
	}
}

func TestRunnerRunTwiceFails(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:    "run-twice",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: []geo.Point{scn.Entry, scn.Target}},
		Seed:     1,
	}, &MockWriter{}, time.Millisecond, rng.New(1), fixedClock)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected second run to be rejected")
	}
}

func TestRunnerInjectRule(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:    "run-inject",
		Scenario: scn,
		Plan:     redteam.PathPlan{Path: samePointPath(scn.Entry, 10)},
		Seed:     1,
	}, &MockWriter{}, time.Second, rng.New(1), fixedClock)

	if ok := r.InjectRule(rules.Spec{ID: "hc", Kind: rules.KindHighConfidenceSighting, Params: rules.Params{MinConfidence: 0.9}}); !ok {
		t.Fatalf("expected spec to compile")
	}
	if len(r.ruleset) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(r.ruleset))
	}

	// same ID replaces in place
	if ok := r.InjectRule(rules.Spec{ID: "hc", Kind: rules.KindHighConfidenceSighting, Params: rules.Params{MinConfidence: 0.5}}); !ok {
		t.Fatalf("expected replacement spec to compile")
	}
	if len(r.ruleset) != 1 {
		t.Fatalf("expected replacement, got %d rules", len(r.ruleset))
	}
	hc, ok := r.ruleset[0].(rules.HighConfidenceSighting)
	if !ok || hc.MinConfidence != 0.5 {
		t.Fatalf("unexpected rule after replacement: %+v", r.ruleset[0])
	}

	if ok := r.InjectRule(rules.Spec{ID: "x", Kind: "unknown_kind"}); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestRunnerActorSnapshots(t *testing.T) {
	scn := testScenario(nil, nil)
	r := NewRunner(RunRequest{
		RunID:     "run-snap",
		Scenario:  scn,
		Plan:      redteam.PathPlan{Path: samePointPath(scn.Entry, 10), GPSMode: actor.GPSOff},
		Civilians: 1,
		Seed:      1,
	}, &MockWriter{}, time.Second, rng.New(1), fixedClock)

	snaps := r.ActorSnapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Type != actor.TypeAdversary || snaps[0].GPS != actor.GPSOff {
		t.Fatalf("unexpected adversary snapshot: %+v", snaps[0])
	}
	if snaps[1].Type != actor.TypeCivilian || snaps[1].GPS != actor.GPSOn {
		t.Fatalf("unexpected civilian snapshot: %+v", snaps[1])
	}
}
