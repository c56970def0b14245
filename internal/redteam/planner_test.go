package redteam

import (
	"context"
	"reflect"
	"testing"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/sensor"
)

var (
	entry  = geo.Point{Lat: 48.1995, Lon: 16.3665}
	target = geo.Point{Lat: 48.2042, Lon: 16.3721}
)

func TestSanitizeEmptyPath(t *testing.T) {
	plan := Sanitize(PathPlan{}, entry, target)
	if len(plan.Path) != 2 {
		t.Fatalf("expected direct two-point path, got %d points", len(plan.Path))
	}
	if plan.Path[0] != entry || plan.Path[1] != target {
		t.Fatalf("fallback path endpoints wrong: %+v", plan.Path)
	}
	if plan.Strategy != "direct" || plan.GPSMode != actor.GPSOff {
		t.Fatalf("fallback defaults wrong: %+v", plan)
	}
}

func TestSanitizeClampsEndpoints(t *testing.T) {
	wild := PathPlan{
		Path: []geo.Point{
			{Lat: 10, Lon: 10}, // planner drifted
			{Lat: 48.2010, Lon: 16.3690},
			{Lat: 99, Lon: 99},
		},
		GPSMode:  actor.GPSOn,
		Strategy: "creative",
	}
	plan := Sanitize(wild, entry, target)
	if plan.Path[0] != entry || plan.Path[len(plan.Path)-1] != target {
		t.Fatalf("endpoints not clamped: %+v", plan.Path)
	}
	if plan.Path[1] != wild.Path[1] {
		t.Fatal("interior waypoints must survive sanitizing")
	}
	if wild.Path[0].Lat != 10 {
		t.Fatal("Sanitize mutated the input plan")
	}
	if plan.Strategy != "creative" || plan.GPSMode != actor.GPSOn {
		t.Fatalf("sanitize overwrote planner choices: %+v", plan)
	}
}

func TestWaypointPlannerDeterministic(t *testing.T) {
	req := PlanRequest{Entry: entry, Target: target, Seed: 11}
	p := WaypointPlanner{}
	a, err := p.PlanPath(context.Background(), req)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	b, err := p.PlanPath(context.Background(), req)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different plans:\n%+v\n%+v", a, b)
	}
	if len(a.Path) != 6 {
		t.Fatalf("expected entry + 4 legs + target, got %d", len(a.Path))
	}
	if a.Path[0] != entry || a.Path[5] != target {
		t.Fatalf("endpoints wrong: %+v", a.Path)
	}
}

func TestWaypointPlannerSkirtsSensors(t *testing.T) {
	// A sensor sitting right on the midpoint of the direct route.
	mid := geo.Point{
		Lat: (entry.Lat + target.Lat) / 2,
		Lon: (entry.Lon + target.Lon) / 2,
	}
	s := sensor.Sensor{ID: "cam-mid", Kind: sensor.KindCamera, Pos: mid, RangeM: 120, BaseProb: 0.9}
	plan, err := WaypointPlanner{Legs: 8}.PlanPath(context.Background(), PlanRequest{
		Entry: entry, Target: target, Sensors: []sensor.Sensor{s}, Seed: 3,
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for i, pt := range plan.Path[1 : len(plan.Path)-1] {
		if d := geo.Distance(pt, mid); d <= s.RangeM {
			t.Fatalf("waypoint %d inside sensor range: %fm", i+1, d)
		}
	}
}
