package sim

import "gauntlet-sim/internal/telemetry"

// EventWriter handles sensor detection event rows.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: event writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}
