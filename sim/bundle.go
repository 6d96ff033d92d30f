// Loads Workload and Config bundles from YAML files, using the same
// strict-parsing convention used elsewhere: unrecognized keys (typos) are
// rejected rather than silently ignored.

package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWorkload reads and parses a workload YAML file. It does not validate
// the result; call Workload.validate (via RunOnce/CompareMany) before
// simulating it.
func LoadWorkload(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload file: %w", err)
	}
	var w Workload
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&w); err != nil {
		return nil, fmt.Errorf("parsing workload file: %w", err)
	}
	return &w, nil
}

// LoadConfig reads and parses a run configuration YAML file, starting from
// DefaultConfig so unset fields keep their documented defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
