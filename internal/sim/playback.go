package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"gauntlet-sim/internal/telemetry"
)

// ReplayLog replays recorded actor telemetry rows from r to writer. A
// speed >0 reproduces the recorded pacing, scaled; speed <= 0 replays
// without artificial delay. Lines that do not decode as actor rows are
// skipped.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var prev time.Time
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row telemetry.ActorRow
		if err := json.Unmarshal(line, &row); err != nil || row.ActorID == "" {
			continue
		}
		if wait := replayDelay(prev, row.Timestamp, speed); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		prev = row.Timestamp
	}
	return sc.Err()
}

// replayDelay scales the recorded gap between two rows by the replay
// speed. A zero prev or non-positive speed yields no delay.
func replayDelay(prev, cur time.Time, speed float64) time.Duration {
	if prev.IsZero() || speed <= 0 {
		return 0
	}
	gap := cur.Sub(prev)
	if speed != 1 {
		gap = time.Duration(float64(gap) / speed)
	}
	return gap
}

// ReplayLogFile opens a file and replays its actor telemetry rows.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
