// Package config loads a node's settings from environment variables,
// with an optional YAML file overlay for values awkward to express as
// env vars (notably the static peer list).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a wavesync-node process needs to start.
type Config struct {
	NodeID   string `yaml:"node_id"`
	DBPath   string `yaml:"db_path"`
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// mesh
	Topic         string        `yaml:"topic"`
	MulticastAddr string        `yaml:"multicast_addr"`
	StaticPeers   []string      `yaml:"static_peers"`
	AnnounceEvery time.Duration `yaml:"announce_every"`

	ReplicateTimeout    time.Duration `yaml:"replicate_timeout"`
	HealthProbeInterval time.Duration `yaml:"health_probe_interval"`
	AntiEntropyDebounce time.Duration `yaml:"anti_entropy_debounce"`

	HLCMaxDrift time.Duration `yaml:"hlc_max_drift"`

	NTPCheckEnabled bool   `yaml:"ntp_check_enabled"`
	NTPServer       string `yaml:"ntp_server"`
}

// Load builds a Config from environment variables, then applies a
// YAML overlay from CONFIG_FILE if set. Env vars set the baseline so a
// YAML file only needs to specify what differs from the defaults.
func Load() (*Config, error) {
	cfg := &Config{
		NodeID:      getEnv("NODE_ID", "node1"),
		DBPath:      getEnv("DB_PATH", "wavesync.db"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":7700"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		Topic:         getEnv("WAVESYNC_TOPIC", "wavesyncdb"),
		MulticastAddr: getEnv("MULTICAST_ADDR", "224.0.0.42:9999"),
		AnnounceEvery: getDurationEnv("ANNOUNCE_EVERY", 10*time.Second),

		ReplicateTimeout:    getDurationEnv("REPLICATE_TIMEOUT", 5*time.Second),
		HealthProbeInterval: getDurationEnv("HEALTH_PROBE_INTERVAL", 15*time.Second),
		AntiEntropyDebounce: getDurationEnv("ANTI_ENTROPY_DEBOUNCE", 2*time.Second),

		HLCMaxDrift: getDurationEnv("HLC_MAX_DRIFT", 500*time.Millisecond),

		NTPCheckEnabled: getBoolEnv("NTP_CHECK_ENABLED", false),
		NTPServer:       getEnv("NTP_SERVER", "pool.ntp.org"),
	}

	if peersStr := os.Getenv("STATIC_PEERS"); peersStr != "" {
		cfg.StaticPeers = splitAndTrim(peersStr)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyYAMLOverlay(path); err != nil {
			return nil, fmt.Errorf("config: overlay %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyYAMLOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks that a Config is internally consistent.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("NODE_ID cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR cannot be empty")
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
