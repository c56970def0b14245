package rules

import (
	"math"
	"reflect"
	"testing"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/sensor"
)

var t0 = time.Unix(1000, 0).UTC()

func adversaryEvent(conf float64, at time.Time, pos geo.Point) sensor.Event {
	return sensor.Event{
		SensorID:   "cam-1",
		ActorID:    "adversary-1",
		ActorType:  actor.TypeAdversary,
		Confidence: conf,
		Pos:        pos,
		Timestamp:  at,
	}
}

func civilianEvent(id string, at time.Time, pos geo.Point) sensor.Event {
	return sensor.Event{
		SensorID:   "cam-1",
		ActorID:    id,
		ActorType:  actor.TypeCivilian,
		Confidence: 0.5,
		Pos:        pos,
		Timestamp:  at,
	}
}

// offsetM shifts a point north by roughly the given meters.
func offsetM(p geo.Point, m float64) geo.Point {
	return geo.Point{Lat: p.Lat + m/(6371000.0*math.Pi/180), Lon: p.Lon}
}

func TestHighConfidenceThreshold(t *testing.T) {
	rule := HighConfidenceSighting{ID: "hc-1", MinConfidence: 0.85}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}

	alerts, _ := Evaluate([]sensor.Event{adversaryEvent(0.84, t0, origin)}, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("confidence 0.84 should not alert, got %+v", alerts)
	}

	alerts, _ = Evaluate([]sensor.Event{adversaryEvent(0.86, t0, origin)}, []Rule{rule}, NewState(), t0)
	if len(alerts) != 1 {
		t.Fatalf("confidence 0.86 should alert, got %d alerts", len(alerts))
	}
	a := alerts[0]
	if a.Level != LevelCritical || a.RuleID != "hc-1" || len(a.Events) != 1 {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

func TestHighConfidenceIgnoresCivilians(t *testing.T) {
	rule := HighConfidenceSighting{ID: "hc-1", MinConfidence: 0.4}
	ev := civilianEvent("civilian-1", t0, geo.Point{})
	ev.Confidence = 0.99
	alerts, _ := Evaluate([]sensor.Event{ev}, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("civilian event should never trip %s, got %+v", rule.ID, alerts)
	}
}

func TestPersistentSightingFiresAndResets(t *testing.T) {
	rule := PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 3}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}
	st := NewState()

	var alerts []Alert
	for i := 0; i < 2; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		alerts, st = Evaluate([]sensor.Event{adversaryEvent(0.3, now, origin)}, []Rule{rule}, st, now)
		if len(alerts) != 0 {
			t.Fatalf("alerted after %d sightings", i+1)
		}
	}

	now := t0.Add(2 * time.Second)
	alerts, st = Evaluate([]sensor.Event{adversaryEvent(0.3, now, origin)}, []Rule{rule}, st, now)
	if len(alerts) != 1 {
		t.Fatalf("expected one alert on third sighting, got %d", len(alerts))
	}
	if len(alerts[0].Events) != 3 {
		t.Fatalf("alert should reference all three sightings, got %d", len(alerts[0].Events))
	}

	// History drained on fire: the fourth sighting starts over.
	now = t0.Add(3 * time.Second)
	alerts, _ = Evaluate([]sensor.Event{adversaryEvent(0.3, now, origin)}, []Rule{rule}, st, now)
	if len(alerts) != 0 {
		t.Fatalf("fourth sighting right after firing should not alert, got %+v", alerts)
	}
}

func TestPersistentSightingWindowPrunes(t *testing.T) {
	rule := PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 3}
	origin := geo.Point{}
	st := NewState()

	_, st = Evaluate([]sensor.Event{adversaryEvent(0.3, t0, origin)}, []Rule{rule}, st, t0)
	_, st = Evaluate([]sensor.Event{adversaryEvent(0.3, t0.Add(time.Second), origin)}, []Rule{rule}, st, t0.Add(time.Second))

	// Third sighting lands after the first two fell out of the window.
	now := t0.Add(30 * time.Second)
	alerts, _ := Evaluate([]sensor.Event{adversaryEvent(0.3, now, origin)}, []Rule{rule}, st, now)
	if len(alerts) != 0 {
		t.Fatalf("stale sightings should have been pruned, got %+v", alerts)
	}
}

func TestPersistentSightingIgnoresCivilians(t *testing.T) {
	rule := PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 2}
	origin := geo.Point{}
	events := []sensor.Event{
		civilianEvent("civilian-1", t0, origin),
		civilianEvent("civilian-2", t0, origin),
		civilianEvent("civilian-3", t0, origin),
	}
	alerts, _ := Evaluate(events, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("civilian events should not accumulate, got %+v", alerts)
	}
}

func TestGroupSightingCountsDistinctActors(t *testing.T) {
	rule := GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 3}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}

	// Two civilians nearby plus the adversary itself: three distinct actors.
	events := []sensor.Event{
		civilianEvent("civilian-1", t0, offsetM(origin, 10)),
		civilianEvent("civilian-2", t0, offsetM(origin, 20)),
		adversaryEvent(0.3, t0, origin),
	}
	alerts, _ := Evaluate(events, []Rule{rule}, NewState(), t0)
	if len(alerts) != 1 {
		t.Fatalf("expected group alert, got %d", len(alerts))
	}
	if alerts[0].RuleID != "gs-1" || alerts[0].Level != LevelCritical {
		t.Fatalf("unexpected alert: %+v", alerts[0])
	}
}

func TestGroupSightingDeduplicatesActors(t *testing.T) {
	rule := GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 3}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}

	// Same civilian sighted twice only counts once.
	events := []sensor.Event{
		civilianEvent("civilian-1", t0, offsetM(origin, 10)),
		civilianEvent("civilian-1", t0, offsetM(origin, 15)),
		adversaryEvent(0.3, t0, origin),
	}
	alerts, _ := Evaluate(events, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("two distinct actors should not reach min_actors=3, got %+v", alerts)
	}
}

func TestGroupSightingRequiresAdversaryTrigger(t *testing.T) {
	rule := GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 2}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}
	events := []sensor.Event{
		civilianEvent("civilian-1", t0, origin),
		civilianEvent("civilian-2", t0, offsetM(origin, 5)),
		civilianEvent("civilian-3", t0, offsetM(origin, 10)),
	}
	alerts, _ := Evaluate(events, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("civilian-only cluster should not trigger, got %+v", alerts)
	}
}

func TestGroupSightingRespectsRadius(t *testing.T) {
	rule := GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 3}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}
	events := []sensor.Event{
		civilianEvent("civilian-1", t0, offsetM(origin, 10)),
		civilianEvent("civilian-2", t0, offsetM(origin, 400)), // out of radius
		adversaryEvent(0.3, t0, origin),
	}
	alerts, _ := Evaluate(events, []Rule{rule}, NewState(), t0)
	if len(alerts) != 0 {
		t.Fatalf("far civilian should not count toward the cluster, got %+v", alerts)
	}
}

func TestGroupSightingCooldown(t *testing.T) {
	rule := GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 2}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}
	cluster := func(at time.Time) []sensor.Event {
		return []sensor.Event{
			civilianEvent("civilian-1", at, offsetM(origin, 10)),
			adversaryEvent(0.3, at, origin),
		}
	}

	st := NewState()
	alerts, st := Evaluate(cluster(t0), []Rule{rule}, st, t0)
	if len(alerts) != 1 {
		t.Fatalf("expected initial group alert, got %d", len(alerts))
	}

	// Qualifying events during the cooldown stay silent.
	for _, after := range []time.Duration{time.Second, 10 * time.Second, 19 * time.Second} {
		now := t0.Add(after)
		alerts, st = Evaluate(cluster(now), []Rule{rule}, st, now)
		if len(alerts) != 0 {
			t.Fatalf("alert during cooldown at +%s", after)
		}
	}

	// Cooldown elapsed: the rule may fire again.
	now := t0.Add(21 * time.Second)
	alerts, _ = Evaluate(cluster(now), []Rule{rule}, st, now)
	if len(alerts) != 1 {
		t.Fatalf("expected alert after cooldown elapsed, got %d", len(alerts))
	}
}

func TestEvaluateEmptyEventsShortCircuits(t *testing.T) {
	rule := PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 1}
	st := NewState()
	_, st = Evaluate([]sensor.Event{adversaryEvent(0.3, t0, geo.Point{})}, []Rule{PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 5}}, st, t0)

	alerts, next := Evaluate(nil, []Rule{rule}, st, t0.Add(time.Second))
	if alerts != nil {
		t.Fatalf("empty tick should not alert, got %+v", alerts)
	}
	if !reflect.DeepEqual(next, st) {
		t.Fatalf("empty tick must leave state untouched: %+v vs %+v", next, st)
	}
}

func TestEvaluateDoesNotMutateInput(t *testing.T) {
	rule := PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 3}
	origin := geo.Point{}
	st := NewState()
	_, st = Evaluate([]sensor.Event{adversaryEvent(0.3, t0, origin)}, []Rule{rule}, st, t0)
	snapshot := st.clone()

	now := t0.Add(time.Second)
	Evaluate([]sensor.Event{adversaryEvent(0.3, now, origin)}, []Rule{rule}, st, now)
	if !reflect.DeepEqual(st, snapshot) {
		t.Fatalf("input state mutated: %+v vs %+v", st, snapshot)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	rls := []Rule{
		HighConfidenceSighting{ID: "hc-1", MinConfidence: 0.85},
		PersistentSighting{ID: "ps-1", TimeWindow: 10 * time.Second, MinDetections: 2},
		GroupSighting{ID: "gs-1", RadiusM: 50, TimeWindow: 20 * time.Second, MinActors: 2},
	}
	origin := geo.Point{Lat: 48.2082, Lon: 16.3738}
	ticks := [][]sensor.Event{
		{civilianEvent("civilian-1", t0, offsetM(origin, 10))},
		{adversaryEvent(0.9, t0.Add(time.Second), origin)},
		{adversaryEvent(0.3, t0.Add(2*time.Second), offsetM(origin, 5))},
		nil,
		{adversaryEvent(0.3, t0.Add(4*time.Second), origin), civilianEvent("civilian-2", t0.Add(4*time.Second), origin)},
	}

	run := func() ([]Alert, State) {
		st := NewState()
		var all []Alert
		for i, events := range ticks {
			now := t0.Add(time.Duration(i) * time.Second)
			var alerts []Alert
			alerts, st = Evaluate(events, rls, st, now)
			all = append(all, alerts...)
		}
		return all, st
	}

	a1, s1 := run()
	a2, s2 := run()
	if !reflect.DeepEqual(a1, a2) {
		t.Fatalf("alerts diverged between identical runs:\n%+v\n%+v", a1, a2)
	}
	if !reflect.DeepEqual(s1, s2) {
		t.Fatalf("state diverged between identical runs")
	}
}

type unknownRule struct{}

func (unknownRule) Name() string { return "mystery" }
func (unknownRule) isRule()      {}

func TestEvaluateSkipsUnknownVariants(t *testing.T) {
	events := []sensor.Event{adversaryEvent(0.9, t0, geo.Point{})}
	alerts, _ := Evaluate(events, []Rule{unknownRule{}, HighConfidenceSighting{ID: "hc-1", MinConfidence: 0.5}}, NewState(), t0)
	if len(alerts) != 1 || alerts[0].RuleID != "hc-1" {
		t.Fatalf("unknown variant should be skipped, got %+v", alerts)
	}
}
