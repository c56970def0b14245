// Telemetry row structs with greptime tags
package telemetry

import (
	"os"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/sensor"
)

// ActorRow is one actor position sample per tick.
type ActorRow struct {
	RunID     string    `json:"run_id"`     // TAG
	ActorID   string    `json:"actor_id"`   // TAG
	ActorType string    `json:"actor_type"` // TAG
	Lat       float64   `json:"lat"`        // FIELD
	Lon       float64   `json:"lon"`        // FIELD
	PathIndex int       `json:"path_index"` // FIELD
	GPSMode   string    `json:"gps_mode"`   // FIELD
	Tick      int       `json:"tick"`       // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

// EventRow is one sensor detection event.
type EventRow struct {
	RunID      string    `json:"run_id"`     // TAG
	SensorID   string    `json:"sensor_id"`  // TAG
	ActorID    string    `json:"actor_id"`   // TAG
	ActorType  string    `json:"actor_type"` // FIELD
	Confidence float64   `json:"confidence"` // FIELD
	Lat        float64   `json:"lat"`        // FIELD
	Lon        float64   `json:"lon"`        // FIELD
	Tick       int       `json:"tick"`       // FIELD
	Timestamp  time.Time `json:"ts"`         // TIME INDEX
}

// AlertRow is one rule alert; the justifying events ride along as JSON.
type AlertRow struct {
	RunID     string         `json:"run_id"`   // TAG
	AlertID   string         `json:"alert_id"` // TAG
	RuleID    string         `json:"rule_id"`  // TAG
	Level     string         `json:"level"`    // FIELD
	Message   string         `json:"message"`  // FIELD
	Events    []sensor.Event `json:"events"`   // FIELD (JSON)
	Tick      int            `json:"tick"`     // FIELD
	Timestamp time.Time      `json:"ts"`       // TIME INDEX
}

// RunRow summarizes one finished run.
type RunRow struct {
	RunID     string    `json:"run_id"`     // TAG
	Scenario  string    `json:"scenario"`   // TAG
	Round     int       `json:"round"`      // FIELD
	Verdict   string    `json:"verdict"`    // FIELD
	Ticks     int       `json:"ticks"`      // FIELD
	Seed      int64     `json:"seed"`       // FIELD
	RuleCount int       `json:"rule_count"` // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

// Table names default to the values below and can be overridden via
// environment variables, matching the sink's provisioning.
var (
	ActorTableName = tableName("ACTOR_TABLE", "actor_telemetry")
	EventTableName = tableName("EVENT_TABLE", "sensor_events")
	AlertTableName = tableName("ALERT_TABLE", "rule_alerts")
	RunTableName   = tableName("RUN_TABLE", "sim_runs")
)

func tableName(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func (ActorRow) TableName() string { return ActorTableName }
func (EventRow) TableName() string { return EventTableName }
func (AlertRow) TableName() string { return AlertTableName }
func (RunRow) TableName() string   { return RunTableName }

// NewActorRow samples an actor's position for the sinks.
func NewActorRow(runID string, tick int, a actor.Actor, now time.Time) ActorRow {
	return ActorRow{
		RunID:     runID,
		ActorID:   a.ID,
		ActorType: string(a.Type),
		Lat:       a.Pos.Lat,
		Lon:       a.Pos.Lon,
		PathIndex: a.PathIndex,
		GPSMode:   string(a.GPS),
		Tick:      tick,
		Timestamp: now,
	}
}

// NewEventRow flattens a sensor event for the sinks.
func NewEventRow(runID string, tick int, ev sensor.Event) EventRow {
	return EventRow{
		RunID:      runID,
		SensorID:   ev.SensorID,
		ActorID:    ev.ActorID,
		ActorType:  string(ev.ActorType),
		Confidence: ev.Confidence,
		Lat:        ev.Pos.Lat,
		Lon:        ev.Pos.Lon,
		Tick:       tick,
		Timestamp:  ev.Timestamp,
	}
}

// NewAlertRow flattens a rule alert for the sinks.
func NewAlertRow(runID string, tick int, a rules.Alert) AlertRow {
	return AlertRow{
		RunID:     runID,
		AlertID:   a.ID,
		RuleID:    a.RuleID,
		Level:     string(a.Level),
		Message:   a.Message,
		Events:    a.Events,
		Tick:      tick,
		Timestamp: a.Timestamp,
	}
}
