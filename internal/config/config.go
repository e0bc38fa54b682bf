package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Port            int           `koanf:"port"`
	CameraUDPPort   int           `koanf:"camera_udp_port"` // 0 wyłącza nasłuch UDP
	StaticDirectory string        `koanf:"static_dir"`
	LogDirectory    string        `koanf:"log_dir"`
	LogLevel        string        `koanf:"log_level"`
	SeriesCapacity  int           `koanf:"series_capacity"` // Liczba próbek w oknie
	WindowSeconds   int           `koanf:"window_seconds"`  // Zakres osi X wykresu
	QueueSize       int           `koanf:"queue_size"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	RenderInterval  time.Duration `koanf:"render_interval"`
	ViewerFPS       float64       `koanf:"viewer_fps"` // Maksymalna liczba klatek/s wysyłanych do widzów
	ChartWidth      int           `koanf:"chart_width"`
	ChartHeight     int           `koanf:"chart_height"`
	FPSWindow       time.Duration `koanf:"fps_window"`
	MaxFrameBytes   int64         `koanf:"max_frame_bytes"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		CameraUDPPort:   0,
		StaticDirectory: filepath.Join(".", "static"),
		LogDirectory:    filepath.Join(".", "logs"),
		LogLevel:        "info",
		SeriesCapacity:  300,
		WindowSeconds:   300,
		QueueSize:       16,
		PollInterval:    100 * time.Millisecond,
		RenderInterval:  time.Second,
		ViewerFPS:       15,
		ChartWidth:      800,
		ChartHeight:     400,
		FPSWindow:       5 * time.Second,
		MaxFrameBytes:   4 << 20,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads .env, an optional YAML file and the environment, in that order
// of increasing priority.
func Load() (*Config, error) {
	return LoadFiles(".env", findConfigFile())
}

// LoadFiles is Load with explicit .env and YAML paths. Empty paths are skipped.
func LoadFiles(envFile, configPath string) (*Config, error) {
	if envFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	known := make(map[string]bool)
	for _, key := range k.Keys() {
		known[key] = true
	}
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		key = envTransformFunc(key)
		if value == "" || !known[key] {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that every size and interval is usable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535 (got %d)", c.Port)
	}
	if c.CameraUDPPort < 0 || c.CameraUDPPort > 65535 {
		return fmt.Errorf("camera_udp_port must be in 0..65535 (got %d)", c.CameraUDPPort)
	}
	if c.SeriesCapacity <= 0 {
		return fmt.Errorf("series_capacity must be > 0 (got %d)", c.SeriesCapacity)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be > 0 (got %d)", c.WindowSeconds)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be > 0 (got %d)", c.QueueSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0 (got %s)", c.PollInterval)
	}
	if c.RenderInterval < c.PollInterval {
		return fmt.Errorf("render_interval (%s) must not be shorter than poll_interval (%s)", c.RenderInterval, c.PollInterval)
	}
	if c.ViewerFPS <= 0 {
		return fmt.Errorf("viewer_fps must be > 0 (got %g)", c.ViewerFPS)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive (got %dx%d)", c.ChartWidth, c.ChartHeight)
	}
	if c.FPSWindow < time.Second {
		return fmt.Errorf("fps_window must be at least 1s (got %s)", c.FPSWindow)
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("max_frame_bytes must be > 0 (got %d)", c.MaxFrameBytes)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be > 0 (got %s)", c.ShutdownTimeout)
	}
	return nil
}

// envTransformFunc maps environment variable names onto config keys:
// PORT -> port, LOG_DIR -> log_dir.
func envTransformFunc(key string) string {
	return strings.ToLower(key)
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
