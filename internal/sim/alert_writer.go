package sim

import "gauntlet-sim/internal/telemetry"

// AlertWriter handles rule alert rows.
type AlertWriter interface {
	WriteAlert(telemetry.AlertRow) error
}

// Optional: alert writers may support batch mode.
type batchAlertWriter interface {
	WriteAlerts([]telemetry.AlertRow) error
}
