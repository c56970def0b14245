package sim

import (
	"encoding/json"
	"os"

	"gauntlet-sim/internal/telemetry"
)

// FileWriter writes telemetry streams to JSONL files.
type FileWriter struct {
	actorFile *os.File
	eventFile *os.File
	alertFile *os.File
	runFile   *os.File
	actorEnc  *json.Encoder
	eventEnc  *json.Encoder
	alertEnc  *json.Encoder
	runEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. eventPath, alertPath, or runPath
// may be empty to skip those streams.
func NewFileWriter(actorPath, eventPath, alertPath, runPath string) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*os.File, *json.Encoder, error) {
		f, err := os.Create(path)
		if err != nil {
			fw.Close()
			return nil, nil, err
		}
		return f, json.NewEncoder(f), nil
	}
	var err error
	if fw.actorFile, fw.actorEnc, err = open(actorPath); err != nil {
		return nil, err
	}
	if eventPath != "" {
		if fw.eventFile, fw.eventEnc, err = open(eventPath); err != nil {
			return nil, err
		}
	}
	if alertPath != "" {
		if fw.alertFile, fw.alertEnc, err = open(alertPath); err != nil {
			return nil, err
		}
	}
	if runPath != "" {
		if fw.runFile, fw.runEnc, err = open(runPath); err != nil {
			return nil, err
		}
	}
	return fw, nil
}

// Write logs a single actor telemetry row.
func (f *FileWriter) Write(row telemetry.ActorRow) error {
	return f.actorEnc.Encode(row)
}

// WriteBatch logs multiple actor telemetry rows.
func (f *FileWriter) WriteBatch(rows []telemetry.ActorRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a sensor event row, if enabled.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple sensor event rows.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert logs a rule alert row, if enabled.
func (f *FileWriter) WriteAlert(row telemetry.AlertRow) error {
	if f.alertEnc == nil {
		return nil
	}
	return f.alertEnc.Encode(row)
}

// WriteAlerts logs multiple alert rows.
func (f *FileWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, r := range rows {
		if err := f.WriteAlert(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteRun logs a run summary row, if enabled.
func (f *FileWriter) WriteRun(row telemetry.RunRow) error {
	if f.runEnc == nil {
		return nil
	}
	return f.runEnc.Encode(row)
}

// Close closes whichever streams were opened, keeping the first error.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.actorFile, f.eventFile, f.alertFile, f.runFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
