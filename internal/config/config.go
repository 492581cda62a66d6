// Package config initializes Viper and assembles the application
// configuration from config files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/chanhound/chanhound/internal/config/database"
	"github.com/chanhound/chanhound/internal/config/harvester"
	"github.com/chanhound/chanhound/internal/logger"
)

// Config is the assembled application configuration.
type Config struct {
	Logger    logger.Config
	Database  database.Config
	Harvester harvester.Config
}

// InitializeViper initializes Viper from environment variables and
// config files. Must be called before Load.
func InitializeViper(cfgFile string) error {
	// .env is optional.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/chanhound")
	}

	setDefaults()

	// Config file is optional; env vars and defaults suffice.
	_ = viper.ReadInConfig()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	viper.SetDefault("harvester", map[string]any{
		"fetch_limit":     harvester.DefaultFetchLimit,
		"rescan_interval": harvester.DefaultRescanInterval,
		"cadence":         harvester.DefaultCadence,
		"gateway_url":     harvester.DefaultGatewayURL,
	})
}

// bindEnvironmentVariables binds the historical environment variable
// names to their config keys.
func bindEnvironmentVariables() error {
	bindings := map[string]string{
		"harvester.fetch_limit":     "MESSAGE_FETCH_LIMIT",
		"harvester.rescan_interval": "RESCAN_INTERVAL",
		"harvester.cadence":         "HARVEST_CADENCE",
		"harvester.fixed_sleep":     "HARVEST_FIXED_SLEEP",
		"harvester.gateway_url":     "GATEWAY_URL",
		"harvester.channels":        "TARGET_CHANNELS",
		"logger.level":              "LOG_LEVEL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return nil
}

// Load assembles the full configuration. InitializeViper must have
// been called first.
func Load() (*Config, error) {
	harvesterCfg, err := harvester.LoadFromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load harvester config: %w", err)
	}
	if err := harvesterCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harvester config: %w", err)
	}

	cfg := &Config{
		Logger: logger.Config{
			Level:       logger.Level(viper.GetString("logger.level")),
			Development: viper.GetBool("logger.development"),
			Encoding:    viper.GetString("logger.encoding"),
		},
		Database:  *database.LoadFromViper(viper.GetViper()),
		Harvester: *harvesterCfg,
	}

	return cfg, nil
}
