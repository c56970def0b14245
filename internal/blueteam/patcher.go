// Package blueteam defines the contract with the rule-patch generator
// and a heuristic built-in stand-in for it.
package blueteam

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/sensor"
)

// PatchRequest describes a bypassed run: the rules that failed to catch
// the adversary and every event the run produced.
type PatchRequest struct {
	Scenario string
	Round    int
	Rules    []rules.Spec
	Events   []sensor.Event
}

// PatchSuggestion is a replacement or additional rule plus the reasoning
// behind it. Purely data; the orchestration decides when to apply it.
type PatchSuggestion struct {
	Rule        rules.Spec `json:"rule"`
	Explanation string     `json:"explanation"`
}

// Patcher proposes a rule patch after a bypass.
type Patcher interface {
	SuggestPatch(ctx context.Context, req PatchRequest) (PatchSuggestion, error)
}

// Fallback is the fixed patch substituted when a patcher fails, so the
// campaign always proceeds to the next round deterministically.
func Fallback() PatchSuggestion {
	return PatchSuggestion{
		Rule: rules.Spec{
			ID:     "fallback-high-confidence",
			Kind:   rules.KindHighConfidenceSighting,
			Params: rules.Params{MinConfidence: 0.95},
		},
		Explanation: "no usable patch was produced; tightening the default high-confidence tripwire",
	}
}

// HeuristicPatcher studies the bypass run's near misses and tightens the
// defense accordingly: repeated low-grade sightings become a persistence
// rule, a single strong one lowers the confidence bar beneath it.
type HeuristicPatcher struct{}

func (HeuristicPatcher) SuggestPatch(ctx context.Context, req PatchRequest) (PatchSuggestion, error) {
	var (
		count   int
		maxConf float64
	)
	for _, ev := range req.Events {
		if ev.ActorType != actor.TypeAdversary {
			continue
		}
		count++
		if ev.Confidence > maxConf {
			maxConf = ev.Confidence
		}
	}
	if count == 0 {
		return PatchSuggestion{}, errors.New("no adversary sightings to learn from")
	}
	if count >= 3 {
		minDetections := count / 2
		if minDetections < 2 {
			minDetections = 2
		}
		return PatchSuggestion{
			Rule: rules.Spec{
				ID:     fmt.Sprintf("patch-r%d-persistence", req.Round),
				Kind:   rules.KindPersistentSighting,
				Params: rules.Params{TimeWindowS: 30, MinDetections: minDetections},
			},
			Explanation: fmt.Sprintf("the adversary was sighted %d times without tripping any rule; %d sightings in 30s now raise an alert", count, minDetections),
		}, nil
	}
	threshold := math.Floor(maxConf*0.9*100) / 100
	return PatchSuggestion{
		Rule: rules.Spec{
			ID:     fmt.Sprintf("patch-r%d-confidence", req.Round),
			Kind:   rules.KindHighConfidenceSighting,
			Params: rules.Params{MinConfidence: threshold},
		},
		Explanation: fmt.Sprintf("the strongest sighting peaked at %.2f confidence; the bar drops to %.2f to catch a repeat", maxConf, threshold),
	}, nil
}
