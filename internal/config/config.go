// Package config defines SHEM configuration and its defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/publish"
	"github.com/shem-project/shem/internal/simulation"
)

// Config is the complete SHEM configuration.
type Config struct {
	Database   db.Config        `mapstructure:"database"`
	Logging    logging.Config   `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Publisher  publish.Config   `mapstructure:"publisher"`
	Server     ServerConfig     `mapstructure:"server"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	TUI        TUIConfig        `mapstructure:"tui"`
}

// SimulationConfig controls how cycles are generated and costed.
type SimulationConfig struct {
	// Strategy is "rate" or "target".
	Strategy string `mapstructure:"strategy"`

	// CostRate is the price per kWh. The target strategy uses it as the
	// nominal rate before rescaling.
	CostRate float64 `mapstructure:"cost_rate"`

	// Targets are the household totals for the target strategy.
	Targets simulation.Totals `mapstructure:"targets"`

	// Seasonal enables seasonal modulation.
	Seasonal bool `mapstructure:"seasonal"`

	// ScenarioMode draws a demand scenario for each cycle.
	ScenarioMode bool `mapstructure:"scenario_mode"`

	// Scenario pins the demand scenario.
	Scenario string `mapstructure:"scenario"`

	// MalfunctionRate is the per-sample failure probability.
	MalfunctionRate float64 `mapstructure:"malfunction_rate"`

	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	// Categories is the household sensor set.
	Categories []models.CategoryBaseline `mapstructure:"categories"`
}

// ServerConfig configures `shem serve`.
type ServerConfig struct {
	HTTPAddr        string          `mapstructure:"http_addr"`
	GRPCAddr        string          `mapstructure:"grpc_addr"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string        `mapstructure:"cors_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the HTTP token buckets.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// SchedulerConfig configures periodic simulation.
type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TUIConfig configures the dashboard.
type TUIConfig struct {
	Theme           string        `mapstructure:"theme"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: db.Config{
			Driver: string(db.DialectSQLite),
			Path:   DefaultDatabasePath(),
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
		Simulation: SimulationConfig{
			Strategy:        simulation.StrategyRate,
			CostRate:        simulation.DefaultCostRate,
			Targets:         simulation.Totals{UsageKWh: 1500, Cost: 225},
			Seasonal:        false,
			ScenarioMode:    false,
			MalfunctionRate: 0.05,
			Categories:      models.DefaultCategories(),
		},
		Publisher: publish.Config{
			Driver: publish.DriverNone,
			Kafka: publish.KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "shem.readings",
			},
			MQTT: publish.MQTTConfig{
				Broker:         "tcp://localhost:1883",
				ClientID:       "shem",
				TopicPrefix:    "shem/readings",
				ConnectTimeout: 10 * time.Second,
			},
		},
		Server: ServerConfig{
			HTTPAddr:        "127.0.0.1:5000",
			GRPCAddr:        "127.0.0.1:5001",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: time.Minute,
		},
		TUI: TUIConfig{
			Theme:           "default",
			RefreshInterval: 5 * time.Second,
		},
	}
}

// DefaultDatabasePath is $XDG_DATA_HOME/shem/shem.db.
func DefaultDatabasePath() string {
	return filepath.Join(dataDir(), "shem.db")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "shem")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "shem")
	}
	return "."
}

// ConfigDir is $XDG_CONFIG_HOME/shem.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "shem")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "shem")
	}
	return "."
}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	validation := &models.ValidationErrors{}

	switch strings.ToLower(c.Database.Driver) {
	case string(db.DialectSQLite):
		if c.Database.Path == "" {
			validation.AddMessage("database.path", "database.path is required for sqlite")
		}
	case string(db.DialectPostgres):
		if c.Database.DSN == "" {
			validation.AddMessage("database.dsn", "database.dsn is required for postgres")
		}
	default:
		validation.AddMessage("database.driver", fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}

	sim := c.Simulation
	switch sim.Strategy {
	case simulation.StrategyRate:
	case simulation.StrategyTarget:
		if sim.Targets.UsageKWh <= 0 || sim.Targets.Cost <= 0 {
			validation.AddMessage("simulation.targets", "target strategy requires positive usage_kwh and cost")
		}
	default:
		validation.AddMessage("simulation.strategy", fmt.Sprintf("unknown strategy %q", sim.Strategy))
	}
	if sim.CostRate <= 0 {
		validation.AddMessage("simulation.cost_rate", "cost_rate must be positive")
	}
	if sim.MalfunctionRate < 0 || sim.MalfunctionRate >= 1 {
		validation.AddMessage("simulation.malfunction_rate", "malfunction_rate must be in [0, 1)")
	}
	if sim.Scenario != "" {
		if _, ok := models.ParseScenario(sim.Scenario); !ok {
			validation.AddMessage("simulation.scenario", fmt.Sprintf("unknown scenario %q", sim.Scenario))
		}
	}
	if len(sim.Categories) == 0 {
		validation.AddMessage("simulation.categories", "at least one category is required")
	}
	seen := make(map[string]bool, len(sim.Categories))
	for _, cat := range sim.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			validation.AddMessage("simulation.categories", "category name is required")
			continue
		}
		if seen[cat.Name] {
			validation.AddMessage("simulation.categories", fmt.Sprintf("duplicate category %q", cat.Name))
		}
		seen[cat.Name] = true
		if cat.BaseUsageKWh < 0 {
			validation.AddMessage("simulation.categories", fmt.Sprintf("category %q has negative base usage", cat.Name))
		}
	}

	switch strings.ToLower(c.Publisher.Driver) {
	case "", publish.DriverNone, publish.DriverKafka, publish.DriverMQTT:
	default:
		validation.AddMessage("publisher.driver", fmt.Sprintf("unknown publisher driver %q", c.Publisher.Driver))
	}

	if c.Server.HTTPAddr == "" {
		validation.AddMessage("server.http_addr", "server.http_addr is required")
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.RequestsPerSecond <= 0 || rl.Burst <= 0) {
		validation.AddMessage("server.rate_limit", "rate limit requires positive requests_per_second and burst")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		validation.AddMessage("scheduler.interval", "scheduler.interval must be positive")
	}

	return validation.Err()
}
