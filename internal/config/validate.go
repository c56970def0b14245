// CUE schema validation for the YAML configuration.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

// ValidateWithCue checks a YAML config file against a CUE schema before
// anything is unmarshalled from it.
func ValidateWithCue(configFile, cueFile string) error {
	schemaBytes, err := os.ReadFile(cueFile)
	if err != nil {
		return fmt.Errorf("read CUE schema: %w", err)
	}
	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("read YAML config: %w", err)
	}

	schema := cuecontext.New().CompileBytes(schemaBytes)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile CUE schema: %w", err)
	}
	if err := yaml.Validate(yamlBytes, schema); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
