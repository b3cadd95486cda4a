package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the service's environment variables, e.g.
// PANEPLAN_SCHEDULE_HORIZON_DAYS overrides schedule.horizon_days.
const envPrefix = "PANEPLAN_"

type Config struct {
	Port        int    `koanf:"port"`
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`
	SeedFile    string `koanf:"seed_file"`
	LogLevel    string `koanf:"log_level"`
	Migrations  string `koanf:"migrations"`

	Schedule  ScheduleConfig  `koanf:"schedule"`
	Sequencer SequencerConfig `koanf:"sequencer"`
	Sink      SinkConfig      `koanf:"sink"`
}

type ScheduleConfig struct {
	HorizonDays   int     `koanf:"horizon_days"`
	ProtectedDays int     `koanf:"protected_days"`
	SlackFactor   float64 `koanf:"slack_factor"`
	SpeedKmh      float64 `koanf:"speed_kmh"`
	CostPerMinute float64 `koanf:"cost_per_minute"`
}

type SequencerConfig struct {
	Algorithm string `koanf:"algorithm"`
	BudgetMs  int    `koanf:"budget_ms"`
}

type SinkConfig struct {
	Enabled    bool    `koanf:"enabled"`
	IntervalMs int     `koanf:"interval_ms"`
	RatePerSec float64 `koanf:"rate_per_sec"`
	Burst      int     `koanf:"burst"`
}

// Default returns the built-in configuration. File and environment values
// are merged over it.
func Default() Config {
	return Config{
		Port:       8080,
		LogLevel:   "info",
		Migrations: "db/migrations",
		Schedule: ScheduleConfig{
			HorizonDays:   7,
			ProtectedDays: 2,
			SlackFactor:   0.9,
			SpeedKmh:      30,
			CostPerMinute: 0.5,
		},
		Sequencer: SequencerConfig{
			Algorithm: "greedy-2opt",
			BudgetMs:  200,
		},
		Sink: SinkConfig{
			Enabled:    true,
			IntervalMs: 1000,
			RatePerSec: 5,
			Burst:      10,
		},
	}
}

// Load reads an optional YAML file then applies PANEPLAN_* environment
// overrides. A missing file path is not an error; a named but unreadable
// file is.
func Load(path string) (Config, error) {
	cfg := Default()
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// single-segment keys stay flat, the rest split on the first _
		for _, section := range []string{"schedule_", "sequencer_", "sink_"} {
			if strings.HasPrefix(key, section) {
				return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
			}
		}
		return key
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("load env config: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Schedule.HorizonDays <= 0 {
		return fmt.Errorf("schedule.horizon_days must be positive")
	}
	if c.Schedule.ProtectedDays < 0 || c.Schedule.ProtectedDays > c.Schedule.HorizonDays {
		return fmt.Errorf("schedule.protected_days must be within the horizon")
	}
	if c.Schedule.SlackFactor <= 0 || c.Schedule.SlackFactor > 1 {
		return fmt.Errorf("schedule.slack_factor must be in (0, 1]")
	}
	return nil
}
