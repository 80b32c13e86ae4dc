package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Profiles holds the tunable investigation knobs that operators adjust per
// deployment: trigger gating, detective weights, queue sizing. Loaded from a
// YAML file; every field has a usable default.
type Profiles struct {
	Triggers   map[string]TriggerProfile `yaml:"triggers"`
	Detectives DetectiveProfile          `yaml:"detectives"`
	Queue      QueueProfile              `yaml:"queue"`
}

// TriggerProfile gates how often an agent may launch investigations.
type TriggerProfile struct {
	WalletCooldownHours int `yaml:"wallet_cooldown_hours"`
	MaxPerHour          int `yaml:"max_per_hour"`
	MinPatternCacheSize int `yaml:"min_pattern_cache_size"`
}

// DetectiveProfile overrides per-detective consensus weights.
type DetectiveProfile struct {
	Weights map[string]float64 `yaml:"weights"`
}

// QueueProfile bounds per-agent task plumbing.
type QueueProfile struct {
	Capacity       int `yaml:"capacity"`
	MaxTaskHistory int `yaml:"max_task_history"`
}

// DefaultProfiles returns the built-in trigger profiles and queue bounds.
func DefaultProfiles() *Profiles {
	return &Profiles{
		Triggers: map[string]TriggerProfile{
			"routine":       {WalletCooldownHours: 24, MaxPerHour: 5, MinPatternCacheSize: 0},
			"high_priority": {WalletCooldownHours: 24, MaxPerHour: 20, MinPatternCacheSize: 0},
			"deep":          {WalletCooldownHours: 24, MaxPerHour: 2, MinPatternCacheSize: 10},
			"real_time":     {WalletCooldownHours: 1, MaxPerHour: 30, MinPatternCacheSize: 0},
		},
		Detectives: DetectiveProfile{Weights: map[string]float64{}},
		Queue: QueueProfile{
			Capacity:       64,
			MaxTaskHistory: 100,
		},
	}
}

// LoadProfiles reads a YAML profile file, filling any gaps with defaults.
// A missing file is not an error; the defaults apply.
func LoadProfiles(path string) (*Profiles, error) {
	p := DefaultProfiles()
	if path == "" {
		return p, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, err
	}
	defer f.Close()

	var loaded Profiles
	if err := yaml.NewDecoder(f).Decode(&loaded); err != nil {
		return nil, err
	}

	for name, tp := range loaded.Triggers {
		p.Triggers[name] = tp
	}
	for id, w := range loaded.Detectives.Weights {
		p.Detectives.Weights[id] = w
	}
	if loaded.Queue.Capacity > 0 {
		p.Queue.Capacity = loaded.Queue.Capacity
	}
	if loaded.Queue.MaxTaskHistory > 0 {
		p.Queue.MaxTaskHistory = loaded.Queue.MaxTaskHistory
	}
	return p, nil
}
