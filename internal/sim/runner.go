package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/logging"
	"gauntlet-sim/internal/redteam"
	"gauntlet-sim/internal/rng"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sensor"
	"gauntlet-sim/internal/telemetry"
)

// TelemetryWriter handles actor telemetry rows.
type TelemetryWriter interface {
	Write(telemetry.ActorRow) error
}

// Optional: writers may support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.ActorRow) error
}

// Phase is the lifecycle state of a run.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseRunning  Phase = "RUNNING"
	PhaseDetected Phase = "DETECTED"
	PhaseBypassed Phase = "BYPASSED"
)

// Verdict is the terminal outcome of a run.
type Verdict string

const (
	VerdictDetected Verdict = "DETECTED"
	VerdictBypassed Verdict = "BYPASSED"
)

// ErrStopped reports a run halted by an external stop before a verdict.
var ErrStopped = errors.New("run stopped")

// RunRequest carries everything a single run needs: the board, the
// adversary's plan, the compiled defense, and the seed that reproduces it.
type RunRequest struct {
	RunID     string
	Round     int
	Scenario  scenario.Scenario
	Plan      redteam.PathPlan
	Rules     []rules.Rule
	Civilians int
	Seed      int64
	MaxTicks  int
}

// TickResult is the outcome of one step: the events and alerts the tick
// produced plus the phase the run is in afterwards. Verdict stays empty
// until the run resolves.
type TickResult struct {
	Tick    int
	Events  []sensor.Event
	Alerts  []rules.Alert
	Phase   Phase
	Verdict Verdict
}

// RunStatus is a point-in-time summary of a run for the admin surface.
type RunStatus struct {
	RunID    string  `json:"run_id"`
	Scenario string  `json:"scenario"`
	Round    int     `json:"round"`
	Phase    Phase   `json:"phase"`
	Tick     int     `json:"tick"`
	Verdict  Verdict `json:"verdict,omitempty"`
	Alerts   int     `json:"alerts"`
}

// ActorSnapshot is one actor's position at the last tick boundary.
type ActorSnapshot struct {
	ID    string        `json:"id"`
	Type  actor.Type    `json:"type"`
	Pos   geo.Point     `json:"pos"`
	GPS   actor.GPSMode `json:"gps"`
	AtEnd bool          `json:"at_end"`
}

// Runner plays one run to its verdict, a tick at a time. Steps serialize
// under a mutex: a tick either completes in full or never starts, so an
// external stop can never leave half-updated rolling state behind.
type Runner struct {
	mu       sync.Mutex
	req      RunRequest
	writer   TelemetryWriter
	interval time.Duration
	rand     *rng.Source
	now      func() time.Time
	obs      *Observability

	engine  *actor.Engine
	ruleset []rules.Rule
	state   rules.State
	phase   Phase
	tick    int
	verdict Verdict

	lastEvents []sensor.Event
	alerts     []rules.Alert
	advEvents  []sensor.Event

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRunner prepares a run in the IDLE phase. The plan is sanitized here
// so a malformed or empty path can never reach the actor engine. A nil
// rnd falls back to a source seeded from the request; a nil now falls
// back to time.Now.
func NewRunner(req RunRequest, writer TelemetryWriter, tickInterval time.Duration, rnd *rng.Source, now func() time.Time) *Runner {
	if rnd == nil {
		rnd = rng.New(req.Seed)
	}
	if now == nil {
		now = time.Now
	}
	req.Plan = redteam.Sanitize(req.Plan, req.Scenario.Entry, req.Scenario.Target)
	return &Runner{
		req:      req,
		writer:   writer,
		interval: tickInterval,
		rand:     rnd,
		now:      now,
		engine:   actor.NewEngine(req.Plan.Path, req.Plan.GPSMode, req.Civilians, req.Scenario.POIPoints(), rnd),
		ruleset:  append([]rules.Rule(nil), req.Rules...),
		state:    rules.NewState(),
		phase:    PhaseIdle,
		stop:     make(chan struct{}),
	}
}

// Start moves the run from IDLE to RUNNING.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseIdle {
		return fmt.Errorf("run already %s", r.phase)
	}
	r.phase = PhaseRunning
	return nil
}

// Run drives the tick loop on a wall-clock cadence until the run
// resolves, the context is canceled, or Stop is called.
func (r *Runner) Run(ctx context.Context) (Verdict, error) {
	if err := r.Start(); err != nil {
		return "", err
	}
	logger := logging.FromContext(ctx)
	logger.Info("run started",
		"run_id", r.req.RunID,
		"scenario", r.req.Scenario.Name,
		"round", r.req.Round,
		"seed", r.req.Seed,
		"waypoints", len(r.req.Plan.Path),
		"strategy", r.req.Plan.Strategy)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-r.stop:
			logger.Warn("run stopped", "run_id", r.req.RunID, "tick", r.tickCount())
			return "", ErrStopped
		case <-ticker.C:
			res := r.Step(ctx)
			if res.Verdict != "" {
				return res.Verdict, nil
			}
			if r.req.MaxTicks > 0 && res.Tick >= r.req.MaxTicks {
				return "", fmt.Errorf("no verdict after %d ticks", res.Tick)
			}
		}
	}
}

// Stop aborts a run between ticks. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Step executes one tick: advance every actor, check for a bypass, roll
// detection, evaluate rules, check for a detection verdict. Stepping a
// resolved run is a no-op reporting the terminal result.
func (r *Runner) Step(ctx context.Context) TickResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseRunning {
		return TickResult{Tick: r.tick, Phase: r.phase, Verdict: r.verdict}
	}

	start := r.now()
	now := start.UTC()
	r.tick++
	defer func() { r.obs.MarkTick(ctx, r.now().Sub(start)) }()

	r.engine.Advance()
	r.writeActors(ctx, now)

	if r.engine.Adversary().AtEnd() {
		r.resolve(ctx, VerdictBypassed)
		return TickResult{Tick: r.tick, Phase: r.phase, Verdict: r.verdict}
	}

	events := r.detect(now)
	r.writeEvents(ctx, events)

	alerts, next := rules.Evaluate(events, r.ruleset, r.state, now)
	r.state = next
	r.writeAlerts(ctx, alerts)

	r.lastEvents = events
	r.alerts = append(r.alerts, alerts...)
	for _, ev := range events {
		if ev.ActorType == actor.TypeAdversary {
			r.advEvents = append(r.advEvents, ev)
		}
	}
	r.obs.MarkEvents(ctx, len(events))
	r.obs.MarkAlerts(ctx, len(alerts))

	for _, a := range alerts {
		if a.Level == rules.LevelCritical {
			r.resolve(ctx, VerdictDetected)
			break
		}
	}
	return TickResult{Tick: r.tick, Events: events, Alerts: alerts, Phase: r.phase, Verdict: r.verdict}
}

func (r *Runner) resolve(ctx context.Context, v Verdict) {
	switch v {
	case VerdictDetected:
		r.phase = PhaseDetected
	case VerdictBypassed:
		r.phase = PhaseBypassed
	}
	r.verdict = v
	r.state = rules.NewState()
	r.obs.MarkRun(ctx, string(v))
	logging.FromContext(ctx).Info("run resolved",
		"run_id", r.req.RunID, "verdict", v, "ticks", r.tick)
}

// detect rolls the full actor/sensor cross-product in a fixed order so
// the draw sequence stays reproducible: actors in creation order, sensors
// in scenario order.
func (r *Runner) detect(now time.Time) []sensor.Event {
	var events []sensor.Event
	for _, a := range r.engine.Actors() {
		for _, s := range r.req.Scenario.Sensors {
			ev, ok := sensor.Detect(*a, s, r.req.Scenario.Weather, r.rand, now)
			if !ok {
				continue
			}
			events = append(events, ev)
		}
	}
	return events
}

func (r *Runner) writeActors(ctx context.Context, now time.Time) {
	if r.writer == nil {
		return
	}
	logger := logging.FromContext(ctx)
	actors := r.engine.Actors()
	rows := make([]telemetry.ActorRow, 0, len(actors))
	for _, a := range actors {
		rows = append(rows, telemetry.NewActorRow(r.req.RunID, r.tick, *a, now))
	}
	if bw, ok := r.writer.(batchWriter); ok {
		if err := bw.WriteBatch(rows); err != nil {
			logger.Error("telemetry batch write failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		if err := r.writer.Write(row); err != nil {
			logger.Error("telemetry write failed", "actor_id", row.ActorID, "error", err)
		}
	}
}

func (r *Runner) writeEvents(ctx context.Context, events []sensor.Event) {
	if len(events) == 0 {
		return
	}
	ew, ok := r.writer.(EventWriter)
	if !ok {
		return
	}
	logger := logging.FromContext(ctx)
	rows := make([]telemetry.EventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, telemetry.NewEventRow(r.req.RunID, r.tick, ev))
	}
	if bw, ok := r.writer.(batchEventWriter); ok {
		if err := bw.WriteEvents(rows); err != nil {
			logger.Error("event batch write failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		if err := ew.WriteEvent(row); err != nil {
			logger.Error("event write failed", "sensor_id", row.SensorID, "error", err)
		}
	}
}

func (r *Runner) writeAlerts(ctx context.Context, alerts []rules.Alert) {
	if len(alerts) == 0 {
		return
	}
	aw, ok := r.writer.(AlertWriter)
	if !ok {
		return
	}
	logger := logging.FromContext(ctx)
	rows := make([]telemetry.AlertRow, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, telemetry.NewAlertRow(r.req.RunID, r.tick, a))
	}
	if bw, ok := r.writer.(batchAlertWriter); ok {
		if err := bw.WriteAlerts(rows); err != nil {
			logger.Error("alert batch write failed", "error", err)
		}
		return
	}
	for _, row := range rows {
		if err := aw.WriteAlert(row); err != nil {
			logger.Error("alert write failed", "rule_id", row.RuleID, "error", err)
		}
	}
}

// InjectRule compiles a spec and swaps it into the live rule set between
// ticks, replacing any rule with the same ID. Unknown kinds are dropped
// the same way the engine drops them.
func (r *Runner) InjectRule(spec rules.Spec) bool {
	compiled, ok := spec.Compile()
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.ruleset {
		if existing.Name() == compiled.Name() {
			r.ruleset[i] = compiled
			return true
		}
	}
	r.ruleset = append(r.ruleset, compiled)
	return true
}

// Status reports the run's current phase, tick, and verdict.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunStatus{
		RunID:    r.req.RunID,
		Scenario: r.req.Scenario.Name,
		Round:    r.req.Round,
		Phase:    r.phase,
		Tick:     r.tick,
		Verdict:  r.verdict,
		Alerts:   len(r.alerts),
	}
}

// ActorSnapshots returns every actor's position in enumeration order.
func (r *Runner) ActorSnapshots() []ActorSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	actors := r.engine.Actors()
	snaps := make([]ActorSnapshot, 0, len(actors))
	for _, a := range actors {
		snaps = append(snaps, ActorSnapshot{
			ID:    a.ID,
			Type:  a.Type,
			Pos:   a.Pos,
			GPS:   a.GPS,
			AtEnd: a.AtEnd(),
		})
	}
	return snaps
}

// LastEvents returns a copy of the most recent tick's sensor events.
func (r *Runner) LastEvents() []sensor.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sensor.Event(nil), r.lastEvents...)
}

// Alerts returns a copy of every alert the run has raised so far.
func (r *Runner) Alerts() []rules.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rules.Alert(nil), r.alerts...)
}

// AdversaryEvents returns a copy of every adversary sighting of the run,
// the material a patch generator learns from after a bypass.
func (r *Runner) AdversaryEvents() []sensor.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sensor.Event(nil), r.advEvents...)
}

func (r *Runner) tickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}
