package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ozone/repmgr/pkg/log"
)

// Replication holds the §6 replication-manager-loop configuration keys.
type Replication struct {
	Interval           time.Duration `yaml:"interval"`
	UnderInterval      time.Duration `yaml:"under_interval"`
	OverInterval       time.Duration `yaml:"over_interval"`
	MinHealthyForMaint int           `yaml:"min_healthy_for_maintenance"`
	SafeModeExitWait   time.Duration `yaml:"safe_mode_exit_wait"`
	MaxCommandsPerCycle int          `yaml:"max_commands_per_cycle"`
}

// NodeHealth holds the staleness thresholds pkg/nodemanager uses.
type NodeHealth struct {
	StaleInterval time.Duration `yaml:"stale_node_interval"`
	DeadInterval  time.Duration `yaml:"dead_node_interval"`
}

// Logging mirrors pkg/log.Config as read from the file. cmd/replicationd
// configures logging from its --log-level/--log-json flags and does not
// apply these values.
type Logging struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the full control-plane configuration tree.
type Config struct {
	Replication Replication `yaml:"replication"`
	NodeHealth  NodeHealth  `yaml:"node_health"`
	Logging     Logging     `yaml:"logging"`
}

// Default returns the §6 defaults.
func Default() Config {
	return Config{
		Replication: Replication{
			Interval:            time.Second,
			UnderInterval:       100 * time.Millisecond,
			OverInterval:        100 * time.Millisecond,
			MinHealthyForMaint:  2,
			SafeModeExitWait:    0,
			MaxCommandsPerCycle: 1000,
		},
		NodeHealth: NodeHealth{
			StaleInterval: 30 * time.Second,
			DeadInterval:  60 * time.Second,
		},
		Logging: Logging{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load reads a YAML file at path and overlays it onto Default(). A missing
// file is not an error — the daemon can run on defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithComponent("config").Warn().Str("path", path).Msg("config file not found, using defaults")
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants the zero value and YAML decoding can't enforce.
func (c Config) Validate() error {
	if c.Replication.Interval <= 0 {
		return fmt.Errorf("replication.interval must be positive, got %s", c.Replication.Interval)
	}
	if c.Replication.UnderInterval <= 0 {
		return fmt.Errorf("replication.under_interval must be positive, got %s", c.Replication.UnderInterval)
	}
	if c.Replication.OverInterval <= 0 {
		return fmt.Errorf("replication.over_interval must be positive, got %s", c.Replication.OverInterval)
	}
	if c.Replication.SafeModeExitWait < 0 {
		return fmt.Errorf("replication.safe_mode_exit_wait must be >= 0, got %s", c.Replication.SafeModeExitWait)
	}
	if c.Replication.MaxCommandsPerCycle <= 0 {
		return fmt.Errorf("replication.max_commands_per_cycle must be positive, got %d", c.Replication.MaxCommandsPerCycle)
	}
	if c.Replication.MinHealthyForMaint < 0 {
		return fmt.Errorf("replication.min_healthy_for_maintenance must be >= 0, got %d", c.Replication.MinHealthyForMaint)
	}
	if c.NodeHealth.StaleInterval <= 0 {
		return fmt.Errorf("node_health.stale_node_interval must be positive, got %s", c.NodeHealth.StaleInterval)
	}
	if c.NodeHealth.DeadInterval <= c.NodeHealth.StaleInterval {
		return fmt.Errorf("node_health.dead_node_interval (%s) must be greater than stale_node_interval (%s)", c.NodeHealth.DeadInterval, c.NodeHealth.StaleInterval)
	}
	return nil
}
