package sim

import "gauntlet-sim/internal/rules"

// RuleInjector allows interactive writers to push a rule into the live
// rule set between ticks.
type RuleInjector interface {
	SetRuleInjector(func(rules.Spec))
}
