package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gauntlet-sim/internal/blueteam"
	"gauntlet-sim/internal/config"
	"gauntlet-sim/internal/logging"
	"gauntlet-sim/internal/redteam"
	"gauntlet-sim/internal/rng"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/scenario"
	"gauntlet-sim/internal/sensor"
	"gauntlet-sim/internal/telemetry"
)

// RoundResult records one red/blue exchange: the run's verdict and, after
// a bypass, the patch the blue team answered with.
type RoundResult struct {
	Round    int                       `json:"round"`
	RunID    string                    `json:"run_id"`
	Verdict  Verdict                   `json:"verdict"`
	Ticks    int                       `json:"ticks"`
	Strategy string                    `json:"strategy"`
	Alerts   []rules.Alert             `json:"alerts,omitempty"`
	Patch    *blueteam.PatchSuggestion `json:"patch,omitempty"`
}

// CampaignResult is the final outcome: every round played plus the rule
// set as it stood when the campaign ended.
type CampaignResult struct {
	Scenario   string        `json:"scenario"`
	Rounds     []RoundResult `json:"rounds"`
	FinalRules []rules.Spec  `json:"final_rules"`
	Detected   bool          `json:"detected"`
}

// Campaign alternates red and blue over rounds on a single scenario. Each
// round the planner routes the adversary against the current rule set; a
// bypass hands that run's sightings to the patcher, and the hardened
// rules carry into the next round. A detection ends the campaign.
type Campaign struct {
	scn       scenario.Scenario
	planner   redteam.Planner
	patcher   blueteam.Patcher
	writer    TelemetryWriter
	interval  time.Duration
	rounds    int
	civilians int
	seed      int64
	now       func() time.Time
	obs       *Observability

	mu      sync.Mutex
	current *Runner
	stopped bool
}

// NewCampaign wires a campaign from configuration. A zero seed is
// replaced with one taken from the clock so every campaign is replayable
// by its logged seed.
func NewCampaign(scn scenario.Scenario, cfg *config.SimulationConfig, planner redteam.Planner, patcher blueteam.Patcher, writer TelemetryWriter, now func() time.Time) *Campaign {
	if now == nil {
		now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = now().UnixNano()
	}
	rounds := cfg.Rounds
	if rounds <= 0 {
		rounds = 1
	}
	return &Campaign{
		scn:       scn,
		planner:   planner,
		patcher:   patcher,
		writer:    writer,
		interval:  cfg.TickInterval(),
		rounds:    rounds,
		civilians: cfg.Civilians,
		seed:      seed,
		now:       now,
	}
}

// SetObservability attaches metric and trace emission to the campaign and
// every runner it starts. A nil receiver value disables emission.
func (c *Campaign) SetObservability(obs *Observability) {
	c.obs = obs
}

// Runner returns the runner of the round in flight, or nil between rounds.
func (c *Campaign) Runner() *Runner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stop aborts the round in flight and prevents further rounds.
func (c *Campaign) Stop() {
	c.mu.Lock()
	c.stopped = true
	cur := c.current
	c.mu.Unlock()
	if cur != nil {
		cur.Stop()
	}
}

// Run plays rounds until the adversary is detected, the rounds are
// exhausted, or the campaign is stopped.
func (c *Campaign) Run(ctx context.Context) (*CampaignResult, error) {
	ctx, span := c.obs.StartSpan(ctx, "campaign.run")
	defer span.End()

	logger := logging.FromContext(ctx)
	specs := append([]rules.Spec(nil), c.scn.Rules...)
	result := &CampaignResult{Scenario: c.scn.Name}

	logger.Info("campaign started",
		"scenario", c.scn.Name,
		"rounds", c.rounds,
		"seed", c.seed,
		"sensors", len(c.scn.Sensors),
		"rules", len(specs))

	for round := 1; round <= c.rounds; round++ {
		if c.isStopped() {
			break
		}
		seed := c.seed + int64(round-1)
		plan := c.plan(ctx, specs, seed)

		runner := NewRunner(RunRequest{
			RunID:     uuid.NewString(),
			Round:     round,
			Scenario:  c.scn,
			Plan:      plan,
			Rules:     rules.CompileAll(specs),
			Civilians: c.civilians,
			Seed:      seed,
		}, c.writer, c.interval, rng.New(seed), c.now)
		runner.obs = c.obs
		c.setCurrent(runner)

		verdict, err := runner.Run(ctx)
		c.setCurrent(nil)
		if err != nil {
			if errors.Is(err, ErrStopped) {
				logger.Warn("campaign stopped", "round", round)
				break
			}
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		status := runner.Status()
		rr := RoundResult{
			Round:    round,
			RunID:    status.RunID,
			Verdict:  verdict,
			Ticks:    status.Tick,
			Strategy: plan.Strategy,
			Alerts:   runner.Alerts(),
		}
		c.writeRun(ctx, status, seed, len(specs))

		if verdict == VerdictDetected {
			result.Rounds = append(result.Rounds, rr)
			result.Detected = true
			break
		}
		if round < c.rounds {
			suggestion := c.patch(ctx, specs, round, runner.AdversaryEvents())
			specs = rules.Upsert(specs, suggestion.Rule)
			rr.Patch = &suggestion
			logger.Info("rule set patched",
				"round", round,
				"rule_id", suggestion.Rule.ID,
				"kind", suggestion.Rule.Kind,
				"explanation", suggestion.Explanation)
		}
		result.Rounds = append(result.Rounds, rr)
	}

	result.FinalRules = specs
	logger.Info("campaign finished",
		"scenario", c.scn.Name,
		"rounds_played", len(result.Rounds),
		"detected", result.Detected)
	return result, nil
}

// plan asks the red team for a path; a planner failure degrades to the
// direct route so the campaign always reaches a verdict.
func (c *Campaign) plan(ctx context.Context, specs []rules.Spec, seed int64) redteam.PathPlan {
	plan, err := c.planner.PlanPath(ctx, redteam.PlanRequest{
		Entry:   c.scn.Entry,
		Target:  c.scn.Target,
		Sensors: c.scn.Sensors,
		Rules:   specs,
		Weather: c.scn.Weather,
		Seed:    seed,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("path planner failed, using direct route", "error", err)
		plan = redteam.PathPlan{}
	}
	return redteam.Sanitize(plan, c.scn.Entry, c.scn.Target)
}

// patch asks the blue team for a rule patch; a patcher failure degrades
// to the fixed fallback rule.
func (c *Campaign) patch(ctx context.Context, specs []rules.Spec, round int, events []sensor.Event) blueteam.PatchSuggestion {
	suggestion, err := c.patcher.SuggestPatch(ctx, blueteam.PatchRequest{
		Scenario: c.scn.Name,
		Round:    round,
		Rules:    specs,
		Events:   events,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("patch generator failed, applying fallback rule", "error", err)
		return blueteam.Fallback()
	}
	return suggestion
}

func (c *Campaign) writeRun(ctx context.Context, status RunStatus, seed int64, ruleCount int) {
	rw, ok := c.writer.(RunWriter)
	if !ok {
		return
	}
	row := telemetry.RunRow{
		RunID:     status.RunID,
		Scenario:  status.Scenario,
		Round:     status.Round,
		Verdict:   string(status.Verdict),
		Ticks:     status.Tick,
		Seed:      seed,
		RuleCount: ruleCount,
		Timestamp: c.now().UTC(),
	}
	if err := rw.WriteRun(row); err != nil {
		logging.FromContext(ctx).Error("run write failed", "run_id", row.RunID, "error", err)
	}
}

func (c *Campaign) setCurrent(r *Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = r
}

func (c *Campaign) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
