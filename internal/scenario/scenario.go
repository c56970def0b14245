package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rules"
	"gauntlet-sim/internal/sensor"
)

// Scenario defines the board a run is played on: the sensor layout, the
// initial rule set, the adversary's entry and target, and the points of
// interest civilians wander between.
type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Weather     sensor.Weather  `yaml:"weather,omitempty"`
	Entry       geo.Point       `yaml:"entry"`
	Target      geo.Point       `yaml:"target"`
	POIs        []POI           `yaml:"pois,omitempty"`
	Sensors     []sensor.Sensor `yaml:"sensors"`
	Rules       []rules.Spec    `yaml:"rules"`
}

// POI is a named point of interest civilians route between.
type POI struct {
	Name string    `yaml:"name,omitempty"`
	Pos  geo.Point `yaml:"pos"`
}

// Load reads a scenario from a YAML file. Weather defaults to clear when
// the file leaves it out.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s := &Scenario{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Weather == "" {
		s.Weather = sensor.WeatherClear
	}
	return s, nil
}

// POIPoints returns the bare positions of the points of interest.
func (s *Scenario) POIPoints() []geo.Point {
	pts := make([]geo.Point, len(s.POIs))
	for i, p := range s.POIs {
		pts[i] = p.Pos
	}
	return pts
}

// CompileRules compiles the scenario's rule specs, skipping unknown kinds.
func (s *Scenario) CompileRules() []rules.Rule {
	return rules.CompileAll(s.Rules)
}
