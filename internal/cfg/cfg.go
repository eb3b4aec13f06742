// Package cfg loads the fee estimation daemon's configuration from a
// YAML file, environment variables, or both. The core estimator takes
// no configuration; everything here concerns the surfaces around it.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	APIBase     string        // esplora-style REST base URL
	WSURL       string        // live feed WebSocket URL
	Targets     []uint16      // block targets estimated each cycle
	Refresh     time.Duration // estimation interval in daemon mode
	WindowTTL   time.Duration // how long fee observations stay relevant
	Ping        time.Duration // feed keep-alive interval
	RESTTimeout time.Duration
	DataPath    string // BoltDB directory, empty disables persistence
	MetricsPort int
}

type ConfigFile struct {
	Chain struct {
		APIBase string `yaml:"apiBase"`
		WSURL   string `yaml:"wsURL"`
	} `yaml:"chain"`

	Estimation struct {
		Targets   []uint16 `yaml:"targets"`
		Refresh   string   `yaml:"refresh"`
		WindowTTL string   `yaml:"windowTTL"`
	} `yaml:"estimation"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		MetricsPort  int    `yaml:"metricsPort"`
		PingInterval string `yaml:"pingInterval"`
		RESTTimeout  string `yaml:"restTimeout"`
	} `yaml:"system"`
}

// Load reads CONFIG_FILE when set, otherwise falls back to environment
// variables. A .env file in the working directory is honored.
func Load() (Settings, error) {
	godotenv.Load()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		APIBase:     getEnvOrDefault("API_BASE", config.Chain.APIBase),
		WSURL:       getEnvOrDefault("WS_URL", config.Chain.WSURL),
		Targets:     config.Estimation.Targets,
		Refresh:     parseDurationOr(config.Estimation.Refresh, 30*time.Second),
		WindowTTL:   parseDurationOr(config.Estimation.WindowTTL, 100*time.Minute),
		Ping:        parseDurationOr(config.System.PingInterval, 15*time.Second),
		RESTTimeout: parseDurationOr(config.System.RESTTimeout, 5*time.Second),
		DataPath:    getEnvOrDefault("DATA_PATH", config.System.DataPath),
		MetricsPort: config.System.MetricsPort,
	}
	applyDefaults(&settings)

	if err := validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		APIBase:     getEnvOrDefault("API_BASE", ""),
		WSURL:       getEnvOrDefault("WS_URL", ""),
		Targets:     parseTargets(os.Getenv("TARGETS")),
		Refresh:     getDurationOrDefault("REFRESH_INTERVAL", 30*time.Second),
		WindowTTL:   getDurationOrDefault("WINDOW_TTL", 100*time.Minute),
		Ping:        getDurationOrDefault("PING_INTERVAL", 15*time.Second),
		RESTTimeout: getDurationOrDefault("REST_TIMEOUT", 5*time.Second),
		DataPath:    os.Getenv("DATA_PATH"), // optional
		MetricsPort: getIntOrDefault("METRICS_PORT", 9090),
	}
	applyDefaults(&settings)

	if err := validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.APIBase == "" {
		s.APIBase = "https://mempool.space/api"
	}
	if s.WSURL == "" {
		s.WSURL = "wss://mempool.space/api/v1/ws"
	}
	if len(s.Targets) == 0 {
		s.Targets = []uint16{1, 2, 3, 6, 24, 144}
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9090
	}
}

func validate(s *Settings) error {
	for _, t := range s.Targets {
		if t == 0 {
			return fmt.Errorf("block targets must be positive")
		}
	}
	if s.Refresh <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", s.Refresh)
	}
	if s.MetricsPort < 0 || s.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", s.MetricsPort)
	}
	return nil
}

func parseTargets(v string) []uint16 {
	if v == "" {
		return nil
	}
	var out []uint16
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			continue
		}
		out = append(out, uint16(n))
	}
	return out
}

func parseDurationOr(v string, defaultValue time.Duration) time.Duration {
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
