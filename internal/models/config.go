package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Solver backend names
const (
	SolverBranchAndBound = "bnb"
	SolverGreedy         = "greedy"
)

// RunConfig holds the parameters of one theater solve.
type RunConfig struct {
	DataDir       string        `yaml:"data_dir"`
	Snapshot      string        `yaml:"snapshot"`
	TheaterID     int           `yaml:"theater_id"`
	MaxDolls      int           `yaml:"max_dolls"`
	FairyRatio    float64       `yaml:"fairy_ratio"`
	UpgradeBudget int           `yaml:"upgrade_budget"`
	Perfect       bool          `yaml:"perfect"`
	Solver        string        `yaml:"solver"`
	MaxNodes      int           `yaml:"max_nodes"`
	TimeLimit     time.Duration `yaml:"time_limit"` // 0 disables the limit
	UnitFilter    string        `yaml:"unit_filter"`
	LogLevel      string        `yaml:"log_level"`
}

// DefaultRunConfig returns the defaults used when no config file is given
func DefaultRunConfig() RunConfig {
	return RunConfig{
		DataDir:    "data",
		Snapshot:   "info/user_info.json",
		MaxDolls:   30,
		FairyRatio: 1.25,
		Solver:     SolverBranchAndBound,
		MaxNodes:   200000,
		TimeLimit:  time.Minute,
		LogLevel:   "info",
	}
}

// LoadRunConfig reads a YAML run configuration on top of the defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid run config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. The theater itself is checked by LookupScenario.
func (c *RunConfig) Validate() error {
	if c.TheaterID <= 0 {
		return fmt.Errorf("theater id is required")
	}
	if c.MaxDolls < 1 {
		return fmt.Errorf("max dolls must be at least 1, got %d", c.MaxDolls)
	}
	if c.FairyRatio <= 0 {
		return fmt.Errorf("fairy ratio must be positive, got %g", c.FairyRatio)
	}
	if c.UpgradeBudget < 0 {
		return fmt.Errorf("upgrade budget must not be negative, got %d", c.UpgradeBudget)
	}
	switch c.Solver {
	case SolverBranchAndBound, SolverGreedy:
	default:
		return fmt.Errorf("unknown solver %q (want %q or %q)", c.Solver, SolverBranchAndBound, SolverGreedy)
	}
	if c.MaxNodes < 1 {
		return fmt.Errorf("max nodes must be at least 1, got %d", c.MaxNodes)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time limit must not be negative, got %s", c.TimeLimit)
	}
	if !c.Perfect && c.Snapshot == "" {
		return fmt.Errorf("snapshot path is required unless perfect mode is set")
	}
	return nil
}
