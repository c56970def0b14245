package rules

import (
	"time"

	"gauntlet-sim/internal/sensor"
)

// Level grades an alert.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Rule is the closed set of detection rule variants. The marker method
// seals the set; the engine matches variants exhaustively and skips
// anything it does not know.
type Rule interface {
	Name() string
	isRule()
}

// HighConfidenceSighting fires when a single adversary event exceeds a
// confidence threshold. Stateless across ticks.
type HighConfidenceSighting struct {
	ID            string
	MinConfidence float64
}

func (r HighConfidenceSighting) Name() string { return r.ID }
func (HighConfidenceSighting) isRule()        {}

// PersistentSighting fires when enough adversary events accumulate inside
// a trailing time window, then resets its history so it has to fill up
// again before the next alert.
type PersistentSighting struct {
	ID            string
	TimeWindow    time.Duration
	MinDetections int
}

func (r PersistentSighting) Name() string { return r.ID }
func (PersistentSighting) isRule()        {}

// GroupSighting fires when an adversary event has enough distinct actors
// sighted within a radius of it inside the window. A cooldown of one full
// window suppresses repeat alerts after each firing.
type GroupSighting struct {
	ID         string
	RadiusM    float64
	TimeWindow time.Duration
	MinActors  int
}

func (r GroupSighting) Name() string { return r.ID }
func (GroupSighting) isRule()        {}

// Alert is an append-only output of a tick. A critical alert ends the run
// as detected.
type Alert struct {
	ID        string         `json:"id"`
	RuleID    string         `json:"rule_id"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Events    []sensor.Event `json:"events"`
	Timestamp time.Time      `json:"ts"`
}
