// StdoutWriter prints telemetry to STDOUT, as JSON lines or colorized
// human-readable output.
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var sensorPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

func colorWhite() string { return "\x1b[37m" }

// StdoutWriter prints actor, event, alert, and run rows to STDOUT. With
// colorize off every row is one JSON line; with it on, rows render as
// colorized key=value lines after a one-time scenario overview.
type StdoutWriter struct {
	scn          *scenario.Scenario
	out          io.Writer
	colorize     bool
	once         sync.Once
	sensorColors map[string]string
	colorIdx     int
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(scn *scenario.Scenario, colorize bool) *StdoutWriter {
	return &StdoutWriter{
		scn:          scn,
		out:          os.Stdout,
		colorize:     colorize,
		sensorColors: make(map[string]string),
	}
}

func (w *StdoutWriter) getSensorColor(id string) string {
	if c, ok := w.sensorColors[id]; ok {
		return c
	}
	c := sensorPalette[w.colorIdx%len(sensorPalette)]
	w.sensorColors[id] = c
	w.colorIdx++
	return c
}

func (w *StdoutWriter) printOverview() {
	if w.scn == nil {
		return
	}

	fmt.Fprintln(w.out, "Scenario:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", w.scn.Name)
	fmt.Fprintf(tw, "Weather:\t%s\n", w.scn.Weather)
	fmt.Fprintf(tw, "Entry:\t(%.5f, %.5f)\n", w.scn.Entry.Lat, w.scn.Entry.Lon)
	fmt.Fprintf(tw, "Target:\t(%.5f, %.5f)\n", w.scn.Target.Lat, w.scn.Target.Lon)
	fmt.Fprintf(tw, "POIs:\t%d\n", len(w.scn.POIs))
	tw.Flush()

	fmt.Fprintln(w.out, "\nSensors:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tType\tRange (m)\tBase P\n")
	for _, s := range w.scn.Sensors {
		col := w.getSensorColor(s.ID)
		fmt.Fprintf(tw, "%s%s%s\t%s\t%.0f\t%.2f\n", col, s.ID, colorReset, s.Kind, s.RangeM, s.BaseProb)
	}
	tw.Flush()

	fmt.Fprintln(w.out, "\nRules:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tKind\n")
	for _, r := range w.scn.Rules {
		fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Kind)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single actor telemetry row.
func (w *StdoutWriter) Write(row telemetry.ActorRow) error {
	if !w.colorize {
		data, _ := json.Marshal(row)
		fmt.Fprintln(w.out, string(data))
		return nil
	}
	w.once.Do(w.printOverview)

	actorColor := colorGreen
	if row.ActorType == string(actor.TypeAdversary) {
		actorColor = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%stick=%d%s ", colorBlue, row.Tick, colorReset)
	fmt.Fprintf(w.out, "%sactor=%s%s ", colorWhite(), row.ActorID, colorReset)
	fmt.Fprintf(w.out, "%stype=%s%s ", actorColor, row.ActorType, colorReset)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, row.Lat, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s ", colorYellow, row.Lon, colorReset)
	fmt.Fprintf(w.out, "%sidx=%d%s ", colorMagenta, row.PathIndex, colorReset)
	fmt.Fprintf(w.out, "%sgps=%s%s", colorCyan, row.GPSMode, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple actor telemetry rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.ActorRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent outputs a sensor detection event row.
func (w *StdoutWriter) WriteEvent(row telemetry.EventRow) error {
	if !w.colorize {
		data, _ := json.Marshal(row)
		fmt.Fprintln(w.out, string(data))
		return nil
	}
	w.once.Do(w.printOverview)
	sCol := w.getSensorColor(row.SensorID)
	fmt.Fprintf(w.out, "%s[%s]%s %sEVENT%s %ssensor=%s%s actor=%s conf=%.2f lat=%.5f lon=%.5f\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, colorReset,
		sCol, row.SensorID, colorReset,
		row.ActorID, row.Confidence, row.Lat, row.Lon)
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *StdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// WriteAlert outputs a rule alert row.
func (w *StdoutWriter) WriteAlert(row telemetry.AlertRow) error {
	if !w.colorize {
		data, _ := json.Marshal(row)
		fmt.Fprintln(w.out, string(data))
		return nil
	}
	w.once.Do(w.printOverview)
	levelColor := colorYellow
	if row.Level == string(rules.LevelCritical) {
		levelColor = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sALERT%s rule=%s level=%s%s%s events=%d msg=%q\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		row.RuleID, levelColor, row.Level, colorReset,
		len(row.Events), row.Message)
	return nil
}

// WriteAlerts outputs multiple alert rows.
func (w *StdoutWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	for _, r := range rows {
		_ = w.WriteAlert(r)
	}
	return nil
}

// WriteRun outputs a run summary row.
func (w *StdoutWriter) WriteRun(row telemetry.RunRow) error {
	if !w.colorize {
		data, _ := json.Marshal(row)
		fmt.Fprintln(w.out, string(data))
		return nil
	}
	w.once.Do(w.printOverview)
	verdictColor := colorGreen
	if row.Verdict == string(VerdictBypassed) {
		verdictColor = colorRed
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sRUN%s round=%d verdict=%s%s%s ticks=%d rules=%d seed=%d\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorMagenta, colorReset,
		row.Round, verdictColor, row.Verdict, colorReset,
		row.Ticks, row.RuleCount, row.Seed)
	return nil
}
