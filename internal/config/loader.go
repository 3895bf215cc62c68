package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SHEM_DATABASE_PATH.
const EnvPrefix = "SHEM"

// Load reads configuration from path, or from the standard search paths when
// path is empty, then applies environment overrides and validates.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigPath is the file `shem init` writes.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so that environment overrides apply
// during Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.dsn", cfg.Database.DSN)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	sim := cfg.Simulation
	v.SetDefault("simulation.strategy", sim.Strategy)
	v.SetDefault("simulation.cost_rate", sim.CostRate)
	v.SetDefault("simulation.targets.usage_kwh", sim.Targets.UsageKWh)
	v.SetDefault("simulation.targets.cost", sim.Targets.Cost)
	v.SetDefault("simulation.seasonal", sim.Seasonal)
	v.SetDefault("simulation.scenario_mode", sim.ScenarioMode)
	v.SetDefault("simulation.scenario", sim.Scenario)
	v.SetDefault("simulation.malfunction_rate", sim.MalfunctionRate)
	v.SetDefault("simulation.seed", sim.Seed)
	categories := make([]map[string]any, 0, len(sim.Categories))
	for _, c := range sim.Categories {
		categories = append(categories, map[string]any{"name": c.Name, "base_usage_kwh": c.BaseUsageKWh})
	}
	v.SetDefault("simulation.categories", categories)

	pub := cfg.Publisher
	v.SetDefault("publisher.driver", pub.Driver)
	v.SetDefault("publisher.kafka.brokers", pub.Kafka.Brokers)
	v.SetDefault("publisher.kafka.topic", pub.Kafka.Topic)
	v.SetDefault("publisher.mqtt.broker", pub.MQTT.Broker)
	v.SetDefault("publisher.mqtt.client_id", pub.MQTT.ClientID)
	v.SetDefault("publisher.mqtt.topic_prefix", pub.MQTT.TopicPrefix)
	v.SetDefault("publisher.mqtt.qos", pub.MQTT.QoS)
	v.SetDefault("publisher.mqtt.connect_timeout", pub.MQTT.ConnectTimeout)

	srv := cfg.Server
	v.SetDefault("server.http_addr", srv.HTTPAddr)
	v.SetDefault("server.grpc_addr", srv.GRPCAddr)
	v.SetDefault("server.shutdown_timeout", srv.ShutdownTimeout)
	v.SetDefault("server.cors_origins", srv.CORSOrigins)
	v.SetDefault("server.rate_limit.enabled", srv.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_second", srv.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rate_limit.burst", srv.RateLimit.Burst)

	v.SetDefault("scheduler.enabled", cfg.Scheduler.Enabled)
	v.SetDefault("scheduler.interval", cfg.Scheduler.Interval)

	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.refresh_interval", cfg.TUI.RefreshInterval)
}
