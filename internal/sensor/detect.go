package sensor

import (
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rng"
)

// Adversaries move with tradecraft and are harder to spot than routine
// traffic.
const stealthFactor = 0.8

// Probability computes the detection probability for one actor/sensor
// pair. The second return is false when the actor is beyond the sensor's
// range (or the sensor has none), meaning no draw should happen at all.
func Probability(a actor.Actor, s Sensor, w Weather) (float64, bool) {
	if s.RangeM <= 0 {
		return 0, false
	}
	dist := geo.Distance(a.Pos, s.Pos)
	if dist > s.RangeM {
		return 0, false
	}
	p := s.BaseProb
	if factor, ok := s.WeatherPenalty[w]; ok {
		p *= factor
	}
	p *= 1 - dist/s.RangeM
	if a.Type == actor.TypeAdversary {
		p *= stealthFactor
	}
	return p, true
}

// Detect rolls detection for one actor/sensor pair. In-range pairs always
// consume exactly one draw from the source; the emitted event carries the
// probability as its confidence.
func Detect(a actor.Actor, s Sensor, w Weather, src *rng.Source, now time.Time) (Event, bool) {
	p, inRange := Probability(a, s, w)
	if !inRange {
		return Event{}, false
	}
	if src.Float64() >= p {
		return Event{}, false
	}
	return Event{
		SensorID:   s.ID,
		ActorID:    a.ID,
		ActorType:  a.Type,
		Confidence: p,
		Pos:        a.Pos,
		Timestamp:  now,
	}, true
}
