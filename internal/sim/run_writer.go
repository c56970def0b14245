package sim

import "gauntlet-sim/internal/telemetry"

// RunWriter handles per-run summary rows written when a run resolves.
type RunWriter interface {
	WriteRun(telemetry.RunRow) error
}
