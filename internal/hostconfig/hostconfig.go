// Package hostconfig persists the host routing state a vqn node last
// applied, so shutdown can tear down exactly the rules it put up rather
// than guessing from the current config file, which may have changed
// since. Nothing reads the sidecar at startup: a new start overwrites
// it without reversing what an earlier run left behind.
package hostconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the sidecar's contents: enough to reverse Up without
// re-reading the TOML config.
type State struct {
	TunName string   `yaml:"tun_name"`
	FWMark  uint32   `yaml:"fwmark"`
	Applied bool     `yaml:"applied"`
	Routes  []string `yaml:"routes"`
}

// Load reads the sidecar at path. A missing file is not an error: it
// means no state has ever been applied, so it returns a zero State.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read host state %s: %w", path, err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse host state %s: %w", path, err)
	}
	return &s, nil
}

// Save writes s to path, replacing any previous sidecar.
func Save(path string, s *State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode host state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write host state %s: %w", path, err)
	}
	return nil
}

// Clear removes the sidecar once its routing state has been reversed.
// A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove host state %s: %w", path, err)
	}
	return nil
}
