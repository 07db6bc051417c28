package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
	Scoring  Scoring  `yaml:"scoring"`
	Sessions Sessions `yaml:"sessions"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// RateLimit throttles the JSON API per client IP. Zero rps disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Scoring struct {
	Decisions int `yaml:"decisions"`
}

type Sessions struct {
	MaxAge        Duration `yaml:"max_age"`
	PruneSchedule string   `yaml:"prune_schedule"`
}

// Duration is a time.Duration written as "720h" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ConfigDir returns the XDG config directory for votematch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "votematch")
}

// DataDir returns the XDG data directory for votematch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "votematch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/votematch/config.yaml > ./config.yaml
// An empty path with no error means no file exists and defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the defaults.
// Environment overrides are applied last, after loading ./.env if present.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server:   Server{Host: "127.0.0.1", Port: 8000, RateLimit: RateLimit{RPS: 10, Burst: 20}},
		Logging:  Logging{Level: "INFO"},
		Scoring:  Scoring{Decisions: 3},
		Sessions: Sessions{MaxAge: Duration(30 * 24 * time.Hour), PruneSchedule: "@hourly"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Scoring.Decisions < 2 {
		return nil, fmt.Errorf("scoring.decisions must be at least 2, got %d", cfg.Scoring.Decisions)
	}

	return cfg, nil
}

// applyEnv overrides settings from VOTEMATCH_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("VOTEMATCH_DATA_DIR"); v != "" {
		c.Output.DataDir = v
	}
	if v := getenv("VOTEMATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid VOTEMATCH_PORT %q", v)
		}
		c.Server.Port = port
	}
	if v := getenv("VOTEMATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "votematch.db")
}

// LogLevel maps logging.level to a slog level, defaulting to INFO.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
