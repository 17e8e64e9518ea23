package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file from the given path. YAML is
// the default; a .toml extension selects TOML. Environment variables in the
// format ${VAR_NAME} are expanded before parsing, and the recognized
// environment knobs are applied on top of the file (see ApplyEnv).
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", cerr)
		}
	}()

	cfg, err := LoadFromReader(file, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// LoadFromReader reads and parses configuration from an io.Reader.
// The ext parameter selects the format (".toml" for TOML, YAML otherwise).
func LoadFromReader(r io.Reader, ext string) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(content))

	var cfg Config
	if strings.EqualFold(ext, ".toml") {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
		return &cfg, nil
	}

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration both services run with when no file is
// present: the weatherapi/weatherstack pair with credentials taken from the
// environment, weatherapi preferred.
func Default() *Config {
	cfg := &Config{
		Providers: []ProviderConfig{
			{
				Name:     "weatherapi",
				BaseURL:  "https://api.weatherapi.com/v1/current.json",
				Key:      os.Getenv("WEATHERAPI_KEY"),
				Priority: 2,
				Enabled:  true,
			},
			{
				Name:       "weatherstack",
				BaseURL:    "https://api.weatherstack.com/current",
				Key:        os.Getenv("WEATHERSTACK_KEY"),
				QueryParam: "query",
				KeyParam:   "access_key",
				Priority:   1,
				Enabled:    true,
			},
		},
	}
	ApplyEnv(cfg)
	return cfg
}

// ApplyEnv overlays the recognized environment options onto cfg. Interval
// and timeout variables are whole seconds, matching what deployments of the
// heartbeat service already export.
func ApplyEnv(cfg *Config) {
	if port := os.Getenv("API_PROXY_PORT"); port != "" {
		cfg.Server.Listen = ":" + port
	}
	if port := os.Getenv("HEARTBEAT_PORT"); port != "" {
		cfg.Watchdog.Listen = ":" + port
	}
	if host := os.Getenv("API_PROXY_HOST"); host != "" {
		port := os.Getenv("API_PROXY_PORT")
		if port == "" {
			port = "8000"
		}
		cfg.Watchdog.ProxyURL = "http://" + host + ":" + port
	}

	applyEnvSeconds("HEALTH_CHECK_INTERVAL", &cfg.Watchdog.HealthCheckIntervalMS)
	applyEnvSeconds("WS_RECONNECT_INTERVAL", &cfg.Watchdog.ReconnectIntervalMS)
	applyEnvSeconds("HTTP_TIMEOUT", &cfg.Watchdog.HTTPTimeoutMS)
	applyEnvSeconds("WS_TIMEOUT", &cfg.Watchdog.WSTimeoutMS)
	applyEnvSeconds("MAX_BACKOFF", &cfg.Watchdog.MaxBackoffMS)
}

func applyEnvSeconds(name string, target *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return
	}
	*target = int(time.Duration(seconds) * time.Second / time.Millisecond)
}
