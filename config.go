package store

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/likearthian/ormstore/metamodel"
)

// Config describes a database connection and the mapping documents bound
// against it.
type Config struct {
	// Driver is one of pgx, postgres, sqlite, oracle or mongo.
	Driver   string            `yaml:"driver"`
	DSN      string            `yaml:"dsn,omitempty"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	Database string            `yaml:"database,omitempty"`
	User     string            `yaml:"user,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Options  map[string]string `yaml:"options,omitempty"`

	Mappings     []string `yaml:"mappings,omitempty"`
	Naming       string   `yaml:"naming,omitempty"`
	MaxOpenConns int      `yaml:"max_open_conns,omitempty"`
	LogLevel     string   `yaml:"log_level,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Driver:   "sqlite",
		DSN:      ":memory:",
		Naming:   "snake",
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML config file. A missing file yields the defaults.
// ORM_* environment variables override the file in both cases.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		data = nil
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"ORM_DRIVER":    &c.Driver,
		"ORM_DSN":       &c.DSN,
		"ORM_HOST":      &c.Host,
		"ORM_DATABASE":  &c.Database,
		"ORM_USER":      &c.User,
		"ORM_PASSWORD":  &c.Password,
		"ORM_NAMING":    &c.Naming,
		"ORM_LOG_LEVEL": &c.LogLevel,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ORM_PORT":           &c.Port,
		"ORM_MAX_OPEN_CONNS": &c.MaxOpenConns,
	}
	for env, dst := range ints {
		v := os.Getenv(env)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", env, v, err)
		}
		*dst = n
	}

	if v := os.Getenv("ORM_MAPPINGS"); v != "" {
		c.Mappings = strings.Split(v, ",")
	}

	return nil
}

// NamingStrategy returns the strategy named by Naming: snake (the default)
// or screaming.
func (c *Config) NamingStrategy() (metamodel.NamingStrategy, error) {
	switch strings.ToLower(c.Naming) {
	case "", "snake":
		return metamodel.SnakeCaseNaming{}, nil
	case "screaming", "screaming_snake":
		return metamodel.ScreamingSnakeNaming{}, nil
	}

	return nil, fmt.Errorf("unknown naming strategy %q", c.Naming)
}

// Logger builds a logger writing to w at LogLevel.
func (c *Config) Logger(w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if c.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(c.LogLevel)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
		}
		level = lvl
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
