// Package config loads the worker's YAML configuration file and resolves
// ENV("NAME") placeholders against the process environment. It only knows
// about the worker-side keys described in the spec; a shared config file
// may carry additional API-side keys, which are ignored here (see the
// "two configuration shapes" design note).
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved worker configuration.
type Config struct {
	PollIntervalSeconds int              `yaml:"poll_interval_seconds"`
	GoogleMapsAPIKey    string           `yaml:"google_maps_api_key"`
	DBConnection        DBConnection     `yaml:"db_connection"`
	Ingestion           Ingestion        `yaml:"ingestion"`
	Logging             Logging          `yaml:"logging"`
	Redis               Redis            `yaml:"redis"`
	NATS                NATS             `yaml:"nats"`
	Influx              Influx           `yaml:"influx"`
	Etcd                Etcd             `yaml:"etcd"`
	Oracle              Oracle           `yaml:"oracle"`
	HTTPServer          HTTPServer       `yaml:"http_server"`
}

// DBConnection describes the output store connection (and, when
// ingestion.type == "db", the input tables too).
type DBConnection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	PoolSize int    `yaml:"pool_size"`
}

// Ingestion selects and configures the Input Reader backend.
type Ingestion struct {
	Type    string `yaml:"type"` // "db" or "api"
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// Logging configures the structured logger's level, file sink and
// rotation. Level is overridden by the LOG_LEVEL environment variable
// when set, per spec; see Load.
type Logging struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	RetainDays int    `yaml:"retain_days"`
}

// Redis configures the fingerprint cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATS configures the tick lifecycle event bus.
type NATS struct {
	URL string `yaml:"url"`
}

// Influx configures the tick metrics sink.
type Influx struct {
	URL    string `yaml:"url"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
	Token  string `yaml:"token"`
}

// Etcd configures the leader election used to serialize multi-replica
// deployments onto a single active tick runner.
type Etcd struct {
	Endpoints         []string `yaml:"endpoints"`
	ElectionPrefix    string   `yaml:"election_prefix"`
	LeaseTTLSeconds   int      `yaml:"lease_ttl_seconds"`
}

// Oracle configures the routing oracle endpoint and request shape.
type Oracle struct {
	URL               string `yaml:"url"`
	Mode              string `yaml:"mode"`               // travel mode, e.g. "driving"
	RoutingPreference string `yaml:"routing_preference"` // e.g. "traffic_aware"
}

// HTTPServer configures the liveness/readiness endpoint.
type HTTPServer struct {
	Port int `yaml:"port"`
}

// PollInterval returns the configured poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

var envPattern = regexp.MustCompile(`^ENV\("([^"]+)"\)$`)

// Load reads and parses the YAML file at path, resolving every
// ENV("NAME") scalar against the process environment. A referenced
// environment variable that is unset or empty is a fatal load error.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := resolveEnvNodes(&node); err != nil {
		return nil, err
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveEnvNodes walks the YAML node tree and rewrites every scalar that
// matches ENV("NAME") into the value of the named environment variable.
func resolveEnvNodes(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		m := envPattern.FindStringSubmatch(n.Value)
		if m == nil {
			return nil
		}
		val, ok := os.LookupEnv(m[1])
		if !ok || val == "" {
			return fmt.Errorf("config: environment variable %q referenced by ENV() is not set", m[1])
		}
		n.Value = val
		n.Tag = "!!str"
		return nil
	}

	for _, child := range n.Content {
		if err := resolveEnvNodes(child); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validate() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: poll_interval_seconds must be > 0, got %d", c.PollIntervalSeconds)
	}
	switch c.Ingestion.Type {
	case "db", "api":
	default:
		return fmt.Errorf("config: ingestion.type must be 'db' or 'api', got %q", c.Ingestion.Type)
	}
	return nil
}

// PathFromEnv reads the WORKER_CONFIG_FILE_PATH environment variable
// required by the CLI entrypoint.
func PathFromEnv() (string, error) {
	path := os.Getenv("WORKER_CONFIG_FILE_PATH")
	if path == "" {
		return "", fmt.Errorf("WORKER_CONFIG_FILE_PATH is required")
	}
	return path, nil
}
