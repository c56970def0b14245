package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gauntlet-sim/internal/admin"
	"gauntlet-sim/internal/blueteam"
	"gauntlet-sim/internal/config"
	"gauntlet-sim/internal/logging"
	"gauntlet-sim/internal/redteam"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sim"
)

var (
	runConfigPath string
	runSchemaPath string
	runScenario   string
	runSeed       int64
	runRounds     int
	runCivilians  int
	runTick       time.Duration
	runWriters    []string
	runAdminAddr  string
	runLogFile    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a red/blue detection campaign",
	Long:  "run plays infiltration rounds against the scenario's sensor net. After each bypass the blue team patches the rule set and the next round starts against the hardened rules.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return err
		}
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
			}
			cfg.TickMS = int(d.Milliseconds())
		}
		applyRunFlags(cmd, cfg)

		scn, err := resolveScenario(cfg.Scenario)
		if err != nil {
			return err
		}

		logger := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), logger))
		defer cancel()

		obs, err := sim.SetupObservability(ctx, cfg.OTLP)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := obs.Shutdown(shutdownCtx); err != nil {
				logger.Warn("observability shutdown failed", "error", err)
			}
		}()

		writer, cleanup, err := newWriters(scn, cfg, runLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		campaign := sim.NewCampaign(*scn, cfg, redteam.WaypointPlanner{}, blueteam.HeuristicPatcher{}, writer, nil)
		campaign.SetObservability(obs)

		if ri, ok := writer.(sim.RuleInjector); ok {
			ri.SetRuleInjector(func(spec rules.Spec) {
				r := campaign.Runner()
				if r == nil {
					logger.Warn("rule injection ignored, no round in flight", "rule_id", spec.ID)
					return
				}
				if !r.InjectRule(spec) {
					logger.Warn("rule injection rejected", "rule_id", spec.ID, "kind", spec.Kind)
				}
			})
		}

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(campaign, scn)
			go func() {
				logger.Info("admin ui listening", "addr", cfg.AdminAddr)
				if err := srv.Start(ctx, cfg.AdminAddr); err != nil && err != http.ErrServerClosed {
					logger.Error("admin server failed", "error", err)
				}
			}()
			if asw, ok := writer.(sim.AdminStatusWriter); ok {
				asw.SetAdminStatus(true)
			}
		}

		type outcome struct {
			result *sim.CampaignResult
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			res, err := campaign.Run(ctx)
			done <- outcome{res, err}
		}()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		var out outcome
		select {
		case out = <-done:
		case <-sigs:
			logger.Info("signal received, stopping campaign")
			campaign.Stop()
			out = <-done
		}
		return out.err
	},
}

// applyRunFlags lays explicitly set flags over the loaded configuration,
// so flags beat env vars and the config file.
func applyRunFlags(cmd *cobra.Command, cfg *config.SimulationConfig) {
	if cmd.Flags().Changed("scenario") {
		cfg.Scenario = runScenario
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = runSeed
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Rounds = runRounds
	}
	if cmd.Flags().Changed("civilians") {
		cfg.Civilians = runCivilians
	}
	if cmd.Flags().Changed("tick") {
		cfg.TickMS = int(runTick.Milliseconds())
	}
	if cmd.Flags().Changed("writers") {
		cfg.Writers = runWriters
	}
	if cmd.Flags().Changed("admin") {
		cfg.AdminAddr = runAdminAddr
	}
}

// resolveScenario loads a scenario YAML when the name points at a file,
// otherwise it looks the name up among the built-in scenarios.
func resolveScenario(name string) (*scenario.Scenario, error) {
	if _, err := os.Stat(name); err == nil {
		return scenario.Load(name)
	}
	builtins := scenario.BuiltIn()
	if scn, ok := builtins[name]; ok {
		return &scn, nil
	}
	known := make([]string, 0, len(builtins))
	for k := range builtins {
		known = append(known, k)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("unknown scenario %q (built-in: %s)", name, strings.Join(known, ", "))
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Scenario name or path to a scenario YAML")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Base RNG seed (0 derives one from the clock)")
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Maximum number of red/blue rounds")
	runCmd.Flags().IntVar(&runCivilians, "civilians", 0, "Number of civilian actors per round")
	runCmd.Flags().DurationVar(&runTick, "tick", 500*time.Millisecond, "Tick interval (e.g. 250ms, 1s)")
	runCmd.Flags().StringSliceVar(&runWriters, "writers", nil, "Telemetry writers (stdout, color, tui, greptime)")
	runCmd.Flags().StringVar(&runAdminAddr, "admin", "", "Admin UI listen address (empty disables it)")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export run logs (JSONL, sidecar files per stream)")
}
