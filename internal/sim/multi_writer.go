package sim

import (
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/telemetry"
)

// MultiWriter fans telemetry rows out to multiple writers, forwarding
// each stream only to writers that handle it.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write sends an actor row to all writers.
func (mw *MultiWriter) Write(row telemetry.ActorRow) error {
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends actor rows to all writers, using batch mode where
// supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.ActorRow) error {
	for _, w := range mw.writers {
		bw, ok := w.(batchWriter)
		if !ok {
			for _, r := range rows {
				if err := w.Write(r); err != nil {
					return err
				}
			}
			continue
		}
		if err := bw.WriteBatch(rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent sends an event row to all event-capable writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.writers {
		ew, ok := w.(EventWriter)
		if !ok {
			continue
		}
		if err := ew.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends event rows to all event-capable writers, using batch
// mode where supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				return err
			}
			continue
		}
		ew, ok := w.(EventWriter)
		if !ok {
			continue
		}
		for _, r := range rows {
			if err := ew.WriteEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAlert sends an alert row to all alert-capable writers.
func (mw *MultiWriter) WriteAlert(row telemetry.AlertRow) error {
	for _, w := range mw.writers {
		aw, ok := w.(AlertWriter)
		if !ok {
			continue
		}
		if err := aw.WriteAlert(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlerts sends alert rows to all alert-capable writers, using batch
// mode where supported.
func (mw *MultiWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchAlertWriter); ok {
			if err := bw.WriteAlerts(rows); err != nil {
				return err
			}
			continue
		}
		aw, ok := w.(AlertWriter)
		if !ok {
			continue
		}
		for _, r := range rows {
			if err := aw.WriteAlert(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteRun sends a run summary row to all run-capable writers.
func (mw *MultiWriter) WriteRun(row telemetry.RunRow) error {
	for _, w := range mw.writers {
		rw, ok := w.(RunWriter)
		if !ok {
			continue
		}
		if err := rw.WriteRun(row); err != nil {
			return err
		}
	}
	return nil
}

// SetAdminStatus forwards the admin indicator to capable writers.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// SetRuleInjector forwards the injection callback to capable writers.
func (mw *MultiWriter) SetRuleInjector(fn func(rules.Spec)) {
	for _, w := range mw.writers {
		if ri, ok := w.(RuleInjector); ok {
			ri.SetRuleInjector(fn)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var err error
	for _, w := range mw.writers {
		c, ok := w.(interface{ Close() error })
		if !ok {
			continue
		}
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
