// YAML config loader with CUE validation and environment overrides
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GreptimeConfig points the telemetry sink at a GreptimeDB instance.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint" env:"GREPTIMEDB_ENDPOINT"`
	Database string `yaml:"database" env:"GREPTIMEDB_DATABASE"`
}

// OTLPConfig configures trace export and metric naming.
type OTLPConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_SAMPLE_RATIO"`
}

// SimulationConfig is the root configuration for campaigns.
type SimulationConfig struct {
	Scenario  string         `yaml:"scenario" env:"GAUNTLET_SCENARIO"`
	Seed      int64          `yaml:"seed" env:"GAUNTLET_SEED"`
	Civilians int            `yaml:"civilians" env:"GAUNTLET_CIVILIANS"`
	Rounds    int            `yaml:"rounds" env:"GAUNTLET_ROUNDS"`
	TickMS    int            `yaml:"tick_ms" env:"GAUNTLET_TICK_MS"`
	AdminAddr string         `yaml:"admin_addr" env:"GAUNTLET_ADMIN_ADDR"`
	Writers   []string       `yaml:"writers" env:"GAUNTLET_WRITERS" envSeparator:","`
	Greptime  GreptimeConfig `yaml:"greptime"`
	OTLP      OTLPConfig     `yaml:"otlp"`
}

// Default returns the configuration used when no file is given.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Scenario:  "perimeter-breach",
		Civilians: 6,
		Rounds:    3,
		TickMS:    500,
		Writers:   []string{"stdout"},
		OTLP:      OTLPConfig{ServiceName: "gauntlet-sim", SampleRatio: 1},
	}
}

// TickInterval converts the configured tick cadence, falling back to the
// default when unset.
func (c *SimulationConfig) TickInterval() time.Duration {
	if c.TickMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.TickMS) * time.Millisecond
}

// Load reads a YAML config, validates it against the CUE schema, and
// applies environment overrides on top.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
