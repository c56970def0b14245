// Package redteam defines the contract with the adversary path planner
// and a deterministic built-in stand-in for it.
package redteam

import (
	"context"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rng"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/sensor"
)

// PlanRequest carries everything a planner may consider: the board, the
// defenses in effect, the weather, and the seed for reproducible plans.
type PlanRequest struct {
	Entry   geo.Point
	Target  geo.Point
	Sensors []sensor.Sensor
	Rules   []rules.Spec
	Weather sensor.Weather
	Seed    int64
}

// PathPlan is what a planner returns. Planner output is untrusted until
// it has passed Sanitize.
type PathPlan struct {
	Path     []geo.Point   `json:"path"`
	GPSMode  actor.GPSMode `json:"gps_mode"`
	Strategy string        `json:"strategy"`
}

// Planner produces an adversary path for a scenario.
type Planner interface {
	PlanPath(ctx context.Context, req PlanRequest) (PathPlan, error)
}

// Sanitize enforces the planner contract on untrusted output: an empty
// path becomes the direct two-point route, and the endpoints are clamped
// to the scenario's entry and target no matter what came back.
func Sanitize(plan PathPlan, entry, target geo.Point) PathPlan {
	if len(plan.Path) == 0 {
		plan.Path = []geo.Point{entry, target}
		if plan.Strategy == "" {
			plan.Strategy = "direct"
		}
	} else {
		path := append([]geo.Point(nil), plan.Path...)
		path[0] = entry
		path[len(path)-1] = target
		plan.Path = path
	}
	if plan.GPSMode == "" {
		plan.GPSMode = actor.GPSOff
	}
	return plan
}

// WaypointPlanner is the built-in planner: it walks jittered waypoints
// from entry to target and nudges any waypoint that lands inside a
// sensor's range radially out of it.
type WaypointPlanner struct {
	Legs int // intermediate waypoints, 4 when zero
}

func (p WaypointPlanner) PlanPath(ctx context.Context, req PlanRequest) (PathPlan, error) {
	legs := p.Legs
	if legs <= 0 {
		legs = 4
	}
	src := rng.New(req.Seed)
	path := make([]geo.Point, 0, legs+2)
	path = append(path, req.Entry)
	for i := 1; i <= legs; i++ {
		f := float64(i) / float64(legs+1)
		pt := geo.Point{
			Lat: req.Entry.Lat + (req.Target.Lat-req.Entry.Lat)*f + (src.Float64()-0.5)*0.0012,
			Lon: req.Entry.Lon + (req.Target.Lon-req.Entry.Lon)*f + (src.Float64()-0.5)*0.0012,
		}
		path = append(path, skirtSensors(pt, req.Sensors))
	}
	path = append(path, req.Target)
	return PathPlan{Path: path, GPSMode: actor.GPSOff, Strategy: "skirt-sensors"}, nil
}

// skirtSensors pushes a waypoint radially out of the first sensor range
// that covers it. One pass only; overlapping coverage may still catch it.
func skirtSensors(pt geo.Point, sensors []sensor.Sensor) geo.Point {
	const degPerMeterLat = 1 / 111194.9
	for _, s := range sensors {
		if s.RangeM <= 0 {
			continue
		}
		dist := geo.Distance(pt, s.Pos)
		if dist > s.RangeM {
			continue
		}
		if dist == 0 {
			pt.Lat += s.RangeM * 1.1 * degPerMeterLat
			continue
		}
		scale := s.RangeM * 1.1 / dist
		pt = geo.Point{
			Lat: s.Pos.Lat + (pt.Lat-s.Pos.Lat)*scale,
			Lon: s.Pos.Lon + (pt.Lon-s.Pos.Lon)*scale,
		}
	}
	return pt
}
