package rules

import (
	"time"

	"gauntlet-sim/internal/sensor"
)

// State is the rolling detection history the engine threads between
// ticks: per-rule event windows and per-rule cooldown deadlines. It is
// owned by Evaluate; callers pass the previous value in and carry the
// returned one forward without looking inside.
type State struct {
	history  map[string][]sensor.Event
	cooldown map[string]time.Time
}

// NewState returns an empty rolling state. The zero value works too.
func NewState() State {
	return State{
		history:  make(map[string][]sensor.Event),
		cooldown: make(map[string]time.Time),
	}
}

// clone deep-copies the state so Evaluate never aliases its input.
func (s State) clone() State {
	next := State{
		history:  make(map[string][]sensor.Event, len(s.history)),
		cooldown: make(map[string]time.Time, len(s.cooldown)),
	}
	for id, events := range s.history {
		next.history[id] = append([]sensor.Event(nil), events...)
	}
	for id, deadline := range s.cooldown {
		next.cooldown[id] = deadline
	}
	return next
}

// pruneWindow drops events older than the trailing window ending at now.
func pruneWindow(events []sensor.Event, now time.Time, window time.Duration) []sensor.Event {
	kept := events[:0]
	for _, ev := range events {
		if now.Sub(ev.Timestamp) <= window {
			kept = append(kept, ev)
		}
	}
	return kept
}
