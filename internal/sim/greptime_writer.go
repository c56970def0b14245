package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"gauntlet-sim/internal/config"
	"gauntlet-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the slice of the ingester client the writer uses;
// tests substitute a mock.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter streams telemetry into GreptimeDB, one table per row
// type.
type GreptimeDBWriter struct {
	client     greptimeClient
	actorTable string
	eventTable string
	alertTable string
	runTable   string
}

// NewGreptimeDBWriter connects to the GreptimeDB gRPC ingest endpoint
// (host or host:port).
func NewGreptimeDBWriter(cfg config.GreptimeConfig) (*GreptimeDBWriter, error) {
	host := cfg.Endpoint
	port := defaultGreptimePort
	if h, p, err := net.SplitHostPort(cfg.Endpoint); err == nil {
		host = h
		if n, convErr := strconv.Atoi(p); convErr == nil {
			port = n
		}
	}
	client, err := greptime.NewClient(greptime.NewConfig(host).WithPort(port).WithDatabase(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("connect greptimedb: %w", err)
	}
	return &GreptimeDBWriter{
		client:     client,
		actorTable: telemetry.ActorTableName,
		eventTable: telemetry.EventTableName,
		alertTable: telemetry.AlertTableName,
		runTable:   telemetry.RunTableName,
	}, nil
}

// Write inserts a single actor telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.ActorRow) error {
	return w.WriteBatch([]telemetry.ActorRow{row})
}

// WriteBatch inserts multiple actor telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.ActorRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.actorTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("actor_id", types.STRING),
		tbl.AddTagColumn("actor_type", types.STRING),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddFieldColumn("path_index", types.INT64),
		tbl.AddFieldColumn("gps_mode", types.STRING),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.ActorID, r.ActorType, r.Lat, r.Lon, int64(r.PathIndex), r.GPSMode, int64(r.Tick), r.Timestamp); err != nil {
			return err
		}
	}
	return w.send(tbl)
}

// WriteEvent inserts a single sensor event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple sensor event rows.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("sensor_id", types.STRING),
		tbl.AddTagColumn("actor_id", types.STRING),
		tbl.AddFieldColumn("actor_type", types.STRING),
		tbl.AddFieldColumn("confidence", types.FLOAT64),
		tbl.AddFieldColumn("lat", types.FLOAT64),
		tbl.AddFieldColumn("lon", types.FLOAT64),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.SensorID, r.ActorID, r.ActorType, r.Confidence, r.Lat, r.Lon, int64(r.Tick), r.Timestamp); err != nil {
			return err
		}
	}
	return w.send(tbl)
}

// WriteAlert inserts a single alert row.
func (w *GreptimeDBWriter) WriteAlert(row telemetry.AlertRow) error {
	return w.WriteAlerts([]telemetry.AlertRow{row})
}

// WriteAlerts inserts multiple alert rows. The justifying events travel
// as a JSON column.
func (w *GreptimeDBWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.alertTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("alert_id", types.STRING),
		tbl.AddTagColumn("rule_id", types.STRING),
		tbl.AddFieldColumn("level", types.STRING),
		tbl.AddFieldColumn("message", types.STRING),
		tbl.AddFieldColumn("events", types.JSON),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		events, err := json.Marshal(r.Events)
		if err != nil {
			return fmt.Errorf("marshal alert events: %w", err)
		}
		if err := tbl.AddRow(r.RunID, r.AlertID, r.RuleID, r.Level, r.Message, string(events), int64(r.Tick), r.Timestamp); err != nil {
			return err
		}
	}
	return w.send(tbl)
}

// WriteRun inserts a run summary row.
func (w *GreptimeDBWriter) WriteRun(row telemetry.RunRow) error {
	tbl, err := table.New(w.runTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("scenario", types.STRING),
		tbl.AddFieldColumn("round", types.INT64),
		tbl.AddFieldColumn("verdict", types.STRING),
		tbl.AddFieldColumn("ticks", types.INT64),
		tbl.AddFieldColumn("seed", types.INT64),
		tbl.AddFieldColumn("rule_count", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	if err := tbl.AddRow(row.RunID, row.Scenario, int64(row.Round), row.Verdict, int64(row.Ticks), row.Seed, int64(row.RuleCount), row.Timestamp); err != nil {
		return err
	}
	return w.send(tbl)
}

func (w *GreptimeDBWriter) send(tbl *table.Table) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		return fmt.Errorf("greptimedb write: %w", err)
	}
	return nil
}
