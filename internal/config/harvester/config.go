// Package harvester provides configuration for the harvest driver:
// fetch limit, rescan interval, sleep cadence, gateway endpoint, and
// the target channel list.
package harvester

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultFetchLimit     = 500
	DefaultRescanInterval = 60 * time.Second
	DefaultCadence        = "month"
	DefaultGatewayURL     = "http://localhost:8081/api/v1"
)

// Configuration errors.
var (
	// ErrNoChannels is returned when no target channels are configured.
	ErrNoChannels = errors.New("no target channels configured")
	// ErrInvalidFetchLimit is returned when the fetch limit is not positive.
	ErrInvalidFetchLimit = errors.New("fetch limit must be positive")
)

// Config represents the harvester configuration.
type Config struct {
	// FetchLimit caps every history fetch.
	FetchLimit int `yaml:"fetch_limit" env:"MESSAGE_FETCH_LIMIT"`
	// RescanInterval is how long after a completed pass a channel
	// becomes due for a full rescan. Independent of Cadence: a channel
	// can be due long before the steady loop wakes again.
	RescanInterval time.Duration `yaml:"rescan_interval" env:"RESCAN_INTERVAL"`
	// Cadence controls the steady loop's sleep: an alignment period
	// name (minute/hour/day/week/month), "fixed", or a cron expression.
	Cadence string `yaml:"cadence" env:"HARVEST_CADENCE"`
	// FixedSleep is the sleep duration when Cadence is "fixed".
	FixedSleep time.Duration `yaml:"fixed_sleep" env:"HARVEST_FIXED_SLEEP"`
	// GatewayURL is the base URL of the gateway API.
	GatewayURL string `yaml:"gateway_url" env:"GATEWAY_URL"`
	// Channels is the fixed list of channel ids to track.
	Channels []int64 `yaml:"channels" env:"TARGET_CHANNELS"`
}

// LoadFromViper loads harvester configuration from Viper and
// environment variables bound to it.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		FetchLimit:     v.GetInt("harvester.fetch_limit"),
		RescanInterval: v.GetDuration("harvester.rescan_interval"),
		Cadence:        v.GetString("harvester.cadence"),
		FixedSleep:     v.GetDuration("harvester.fixed_sleep"),
		GatewayURL:     v.GetString("harvester.gateway_url"),
	}

	if cfg.FetchLimit == 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	if cfg.RescanInterval == 0 {
		cfg.RescanInterval = DefaultRescanInterval
	}
	if cfg.Cadence == "" {
		cfg.Cadence = DefaultCadence
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}

	channels, err := ParseChannelList(v.GetString("harvester.channels"))
	if err != nil {
		return nil, err
	}
	cfg.Channels = channels

	return cfg, nil
}

// ParseChannelList parses a comma-separated list of channel ids.
// Empty entries are skipped.
func ParseChannelList(raw string) ([]int64, error) {
	var channels []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid channel id %q: %w", part, err)
		}
		channels = append(channels, id)
	}
	return channels, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.FetchLimit <= 0 {
		return ErrInvalidFetchLimit
	}
	if len(c.Channels) == 0 {
		return ErrNoChannels
	}
	return nil
}
