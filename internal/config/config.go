package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendKuzu     = "kuzu"
)

// Config holds settings loaded from systrav.yml, .env and SYSTRAV_*
// environment variables, in increasing order of precedence.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Server ServerConfig `yaml:"server"`
}

type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"`
	// DSN is the connection string for the postgres and mysql backends.
	DSN string `yaml:"dsn,omitempty"`
	// KuzuPath is the database directory for the kuzu backend. Empty means
	// in-memory.
	KuzuPath string `yaml:"kuzuPath,omitempty"`
	// Seed is applied when the store holds no systems at startup: a seed
	// file path, or "default" for the built-in seed. Empty disables it.
	Seed string `yaml:"seed,omitempty"`
}

type EngineConfig struct {
	DeletePolicy graph.DeletePolicy `yaml:"deletePolicy,omitempty"`
	StoreTimeout time.Duration      `yaml:"storeTimeout,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // json or console
}

// KafkaConfig enables change events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

// Enabled reports whether events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Store:  StoreConfig{Backend: BackendMemory},
		Engine: EngineConfig{DeletePolicy: graph.DeleteReparent, StoreTimeout: 10 * time.Second},
		Log:    LogConfig{Level: "info", Format: "console"},
		Kafka:  KafkaConfig{Topic: "systrav.changes"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads systrav.yml or systrav.yaml from dir, then .env from dir, then
// applies SYSTRAV_* environment overrides. Missing files are not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"systrav.yml", "systrav.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		break
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SYSTRAV_STORE_BACKEND", &c.Store.Backend)
	setString("SYSTRAV_STORE_DSN", &c.Store.DSN)
	setString("SYSTRAV_KUZU_PATH", &c.Store.KuzuPath)
	setString("SYSTRAV_STORE_SEED", &c.Store.Seed)
	setString("SYSTRAV_LOG_LEVEL", &c.Log.Level)
	setString("SYSTRAV_LOG_FORMAT", &c.Log.Format)
	setString("SYSTRAV_KAFKA_TOPIC", &c.Kafka.Topic)
	setString("SYSTRAV_ADDR", &c.Server.Addr)

	if v := os.Getenv("SYSTRAV_DELETE_POLICY"); v != "" {
		c.Engine.DeletePolicy = graph.DeletePolicy(v)
	}
	if v := os.Getenv("SYSTRAV_STORE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SYSTRAV_STORE_TIMEOUT: %w", err)
		}
		c.Engine.StoreTimeout = d
	}
	if v := os.Getenv("SYSTRAV_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	return nil
}

// Validate checks that the settings can be acted on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendKuzu:
	case BackendPostgres, BackendMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for backend %q", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if !c.Engine.DeletePolicy.Valid() {
		errs = append(errs, fmt.Errorf("engine.deletePolicy: unknown policy %q", c.Engine.DeletePolicy))
	}
	if c.Engine.StoreTimeout < 0 {
		errs = append(errs, errors.New("engine.storeTimeout must not be negative"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
