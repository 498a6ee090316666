// Package config provides configuration for the agentyes wrapper.
// Values come from defaults, environment variables (AGENTYES_ prefix) and
// command-line flags, in increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentyes/agentyes/internal/common/logger"
	"github.com/spf13/viper"
)

// Config holds everything the wrapper core needs for one run.
type Config struct {
	// Agent is the child program to supervise.
	Agent string `mapstructure:"agent"`

	// AgentArgs are the child's arguments. Rewritten to the continuation
	// form when a crashed session is restarted.
	AgentArgs []string `mapstructure:"-"`

	// ContinueOnCrash restarts the child with continuation arguments when
	// it exits non-zero.
	ContinueOnCrash bool `mapstructure:"continue_on_crash"`

	// ExitOnIdle ends the run after this much inactivity. Zero disables
	// idle monitoring entirely.
	ExitOnIdle time.Duration `mapstructure:"-"`

	// LogFile, when set, receives the rendered transcript after the run.
	LogFile string `mapstructure:"log_file"`

	// RemoveControlCharacters strips ANSI/control sequences from the
	// stdout passthrough.
	RemoveControlCharacters bool `mapstructure:"remove_control_characters"`

	// Verbose enables debug-level logging.
	Verbose bool `mapstructure:"verbose"`

	Logging logger.LoggingConfig `mapstructure:"logging"`
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("agent", "claude")
	v.SetDefault("continue_on_crash", true)
	v.SetDefault("exit_on_idle", "60s")
	v.SetDefault("log_file", "")
	v.SetDefault("remove_control_characters", false)
	v.SetDefault("verbose", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.output_path", "stderr")
}

// Load reads configuration from defaults and AGENTYES_* environment
// variables. Flag overrides are applied by the caller afterwards.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTYES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	idle, err := ParseIdleDuration(v.GetString("exit_on_idle"))
	if err != nil {
		return nil, err
	}
	cfg.ExitOnIdle = idle

	if cfg.Verbose {
		cfg.Logging.Level = "debug"
	}

	return &cfg, nil
}

// ParseIdleDuration parses an idle-timeout flag value. "0" and "false"
// disable idle monitoring and map to a zero duration.
func ParseIdleDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || s == "false" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.Agent == "" {
		return fmt.Errorf("agent command must not be empty")
	}
	return nil
}
