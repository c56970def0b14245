package rules

import "time"

// Rule kinds as they appear in scenario files and patch payloads.
const (
	KindHighConfidenceSighting = "high_confidence_sighting"
	KindPersistentSighting     = "persistent_sighting"
	KindGroupSighting          = "group_sighting"
)

// Spec is the wire form of a rule: scenario YAML and blue-team patches
// both speak it. Rules are data produced upstream; params are not
// validated here.
type Spec struct {
	ID     string `json:"id" yaml:"id"`
	Kind   string `json:"type" yaml:"type"`
	Params Params `json:"params" yaml:"params"`
}

// Params carries the union of per-kind parameters; each kind reads only
// its own fields.
type Params struct {
	MinConfidence float64 `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty"`
	TimeWindowS   int     `json:"time_window_s,omitempty" yaml:"time_window_s,omitempty"`
	MinDetections int     `json:"min_detections,omitempty" yaml:"min_detections,omitempty"`
	RadiusM       float64 `json:"radius_m,omitempty" yaml:"radius_m,omitempty"`
	MinActors     int     `json:"min_actors,omitempty" yaml:"min_actors,omitempty"`
}

// Compile turns a spec into a rule variant. Unknown kinds report false.
func (s Spec) Compile() (Rule, bool) {
	switch s.Kind {
	case KindHighConfidenceSighting:
		return HighConfidenceSighting{
			ID:            s.ID,
			MinConfidence: s.Params.MinConfidence,
		}, true
	case KindPersistentSighting:
		return PersistentSighting{
			ID:            s.ID,
			TimeWindow:    time.Duration(s.Params.TimeWindowS) * time.Second,
			MinDetections: s.Params.MinDetections,
		}, true
	case KindGroupSighting:
		return GroupSighting{
			ID:         s.ID,
			RadiusM:    s.Params.RadiusM,
			TimeWindow: time.Duration(s.Params.TimeWindowS) * time.Second,
			MinActors:  s.Params.MinActors,
		}, true
	default:
		return nil, false
	}
}

// CompileAll compiles a rule set, silently skipping unknown kinds so a
// newer rule vocabulary never breaks an older engine.
func CompileAll(specs []Spec) []Rule {
	var rls []Rule
	for _, s := range specs {
		if r, ok := s.Compile(); ok {
			rls = append(rls, r)
		}
	}
	return rls
}

// Upsert replaces the rule with the same ID or appends the new one,
// returning a fresh slice. Used when a patch hardens the active rule set
// between runs.
func Upsert(specs []Spec, patch Spec) []Spec {
	out := append([]Spec(nil), specs...)
	for i, s := range out {
		if s.ID == patch.ID {
			out[i] = patch
			return out
		}
	}
	return append(out, patch)
}
