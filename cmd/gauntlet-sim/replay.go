package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gauntlet-sim/internal/config"
	"gauntlet-sim/internal/sim"
)

var (
	replayFile   string
	replaySpeed  float64
	replayWriter string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded actor telemetry log",
	Long:  "replay feeds actor rows from a JSONL log back into a writer, reproducing the recorded pacing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayWriter == "tui" {
			return fmt.Errorf("writer %q is interactive, pick stdout, color, or greptime", replayWriter)
		}
		cfg := config.Default()
		if err := config.ParseEnv(cfg); err != nil {
			return err
		}
		writer, err := baseWriter(replayWriter, nil, cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := sim.ReplayLogFile(ctx, replayFile, writer, replaySpeed); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Path to an actor telemetry JSONL log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	replayCmd.Flags().StringVar(&replayWriter, "writer", "stdout", "Writer to replay into (stdout, color, greptime)")
	replayCmd.MarkFlagRequired("file")
}
