package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr           string        `yaml:"addr"`
	StaticDir      string        `yaml:"staticDir"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
}

// GRPC with an empty Addr disables the diagnostics server.
type GRPC struct {
	Addr string `yaml:"addr"`
}

type Registry struct {
	Generator string `yaml:"generator"` // digits|words
	Digits    int    `yaml:"digits"`    // token width for digits
}

type WS struct {
	PingEvery time.Duration `yaml:"pingEvery"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // signal-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

// Postgres with an empty DSN disables the audit log.
type Postgres struct {
	DSN        string `yaml:"dsn"`
	MaxConns   int32  `yaml:"maxConns"`
	QueueSize  int    `yaml:"queueSize"`
	AutoCreate bool   `yaml:"autoCreate"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Registry Registry `yaml:"registry"`
	WS       WS       `yaml:"ws"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
}

const (
	GeneratorDigits = "digits"
	GeneratorWords  = "words"
)

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	switch c.Registry.Generator {
	case "":
		c.Registry.Generator = GeneratorDigits
	case GeneratorDigits, GeneratorWords:
	default:
		return fmt.Errorf("registry.generator must be %q or %q, got %q", GeneratorDigits, GeneratorWords, c.Registry.Generator)
	}
	if c.Registry.Digits == 0 {
		c.Registry.Digits = 4
	}
	if c.Registry.Digits < 1 || c.Registry.Digits > 9 {
		return fmt.Errorf("registry.digits must be in 1..9, got %d", c.Registry.Digits)
	}

	// defaults
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.WS.PingEvery == 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "signal-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Postgres.QueueSize == 0 {
		c.Postgres.QueueSize = 1024
	}
	return nil
}
