package rules

import (
	"fmt"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/sensor"
)

// Evaluate runs every rule over this tick's events plus the rolling state
// and returns the alerts raised and the state to carry into the next
// tick. The input state is never mutated. With no events it returns the
// state untouched.
func Evaluate(events []sensor.Event, rls []Rule, st State, now time.Time) ([]Alert, State) {
	if len(events) == 0 {
		return nil, st
	}
	next := st.clone()
	var alerts []Alert
	for _, r := range rls {
		switch rule := r.(type) {
		case HighConfidenceSighting:
			if a, ok := evalHighConfidence(rule, events, now); ok {
				alerts = append(alerts, a)
			}
		case PersistentSighting:
			if a, ok := evalPersistent(rule, events, next, now); ok {
				alerts = append(alerts, a)
			}
		case GroupSighting:
			if a, ok := evalGroup(rule, events, next, now); ok {
				alerts = append(alerts, a)
			}
		default:
			// Unknown variants come from newer rule vocabularies; skip.
		}
	}
	return alerts, next
}

func evalHighConfidence(rule HighConfidenceSighting, events []sensor.Event, now time.Time) (Alert, bool) {
	var hits []sensor.Event
	best := sensor.Event{}
	for _, ev := range events {
		if ev.ActorType != actor.TypeAdversary || ev.Confidence <= rule.MinConfidence {
			continue
		}
		hits = append(hits, ev)
		if ev.Confidence > best.Confidence {
			best = ev
		}
	}
	if len(hits) == 0 {
		return Alert{}, false
	}
	return newAlert(rule.ID, now, hits,
		fmt.Sprintf("adversary sighted by %s at confidence %.2f", best.SensorID, best.Confidence)), true
}

func evalPersistent(rule PersistentSighting, events []sensor.Event, st State, now time.Time) (Alert, bool) {
	window := pruneWindow(st.history[rule.ID], now, rule.TimeWindow)
	for _, ev := range events {
		if ev.ActorType == actor.TypeAdversary {
			window = append(window, ev)
		}
	}
	if len(window) >= rule.MinDetections {
		// Firing drains the window so the rule has to re-arm instead of
		// alerting every tick the threshold stays crossed.
		st.history[rule.ID] = nil
		return newAlert(rule.ID, now, window,
			fmt.Sprintf("adversary sighted %d times within %s", len(window), rule.TimeWindow)), true
	}
	st.history[rule.ID] = window
	return Alert{}, false
}

func evalGroup(rule GroupSighting, events []sensor.Event, st State, now time.Time) (Alert, bool) {
	window := pruneWindow(st.history[rule.ID], now, rule.TimeWindow)
	window = append(window, events...)
	st.history[rule.ID] = window
	if deadline, ok := st.cooldown[rule.ID]; ok && deadline.After(now) {
		return Alert{}, false
	}
	for _, ev := range events {
		if ev.ActorType != actor.TypeAdversary {
			continue
		}
		distinct := make(map[string]struct{})
		var cluster []sensor.Event
		for _, seen := range window {
			if geo.Distance(seen.Pos, ev.Pos) <= rule.RadiusM {
				distinct[seen.ActorID] = struct{}{}
				cluster = append(cluster, seen)
			}
		}
		if len(distinct) >= rule.MinActors {
			st.cooldown[rule.ID] = now.Add(rule.TimeWindow)
			return newAlert(rule.ID, now, cluster,
				fmt.Sprintf("%d actors clustered within %.0fm of an adversary sighting", len(distinct), rule.RadiusM)), true
		}
	}
	return Alert{}, false
}

// newAlert builds a critical alert with a deterministic identity: each
// rule fires at most once per tick, so rule plus timestamp is unique.
func newAlert(ruleID string, now time.Time, events []sensor.Event, msg string) Alert {
	return Alert{
		ID:        fmt.Sprintf("%s-%d", ruleID, now.UnixMilli()),
		RuleID:    ruleID,
		Level:     LevelCritical,
		Message:   msg,
		Events:    append([]sensor.Event(nil), events...),
		Timestamp: now,
	}
}
