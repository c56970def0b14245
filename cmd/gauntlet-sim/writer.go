package main

import (
	"fmt"

	"gauntlet-sim/internal/config"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sim"
)

// newWriters builds the writer stack named in cfg.Writers. A non-empty
// logFile adds a JSONL file writer with sidecar files per stream. The
// returned cleanup closes whatever the stack holds open.
func newWriters(scn *scenario.Scenario, cfg *config.SimulationConfig, logFile string) (sim.TelemetryWriter, func(), error) {
	names := cfg.Writers
	if len(names) == 0 {
		names = []string{"stdout"}
	}
	writers := make([]sim.TelemetryWriter, 0, len(names)+1)
	for _, name := range names {
		w, err := baseWriter(name, scn, cfg)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
	}
	if logFile != "" {
		fw, err := sim.NewFileWriter(logFile, logFile+".events", logFile+".alerts", logFile+".runs")
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = sim.NewMultiWriter(writers...)
	}
	cleanup := func() {
		if c, ok := writer.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
	return writer, cleanup, nil
}

// baseWriter builds a single writer by name.
func baseWriter(name string, scn *scenario.Scenario, cfg *config.SimulationConfig) (sim.TelemetryWriter, error) {
	switch name {
	case "stdout":
		return sim.NewStdoutWriter(scn, false), nil
	case "color":
		return sim.NewStdoutWriter(scn, true), nil
	case "tui":
		return sim.NewTUIWriter(scn), nil
	case "greptime":
		if cfg.Greptime.Endpoint == "" {
			return nil, fmt.Errorf("writer %q requires a GreptimeDB endpoint", name)
		}
		return sim.NewGreptimeDBWriter(cfg.Greptime)
	default:
		return nil, fmt.Errorf("unknown writer %q", name)
	}
}
