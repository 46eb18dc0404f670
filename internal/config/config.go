package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ripple/internal/errors"
)

// FileBaseName is the configuration file name without extension.
const FileBaseName = "ripple"

// Defaults.
const (
	DefaultMaxUpdateCount  = 100
	DefaultAddr            = ":7070"
	DefaultWSPath          = "/ws"
	DefaultShutdownTimeout = "5s"
	DefaultNamespace       = "ripple"
	DefaultMetricsPath     = "/metrics"
	DefaultTracerName      = "ripple"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultSnapshotKey     = "state"
	DefaultSnapshotPath    = "ripple.db"
)

// Snapshot backends.
const (
	BackendNone = ""
	BackendBolt = "bolt"
	BackendS3   = "s3"
)

// searchOrder lists the extensions Load tries, in order.
var searchOrder = []string{".json", ".yaml", ".yml", ".toml"}

// Config is the complete ripple configuration.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics" toml:"metrics"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing" toml:"tracing"`
	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
	Snapshot  SnapshotConfig  `json:"snapshot" yaml:"snapshot" toml:"snapshot"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SchedulerConfig controls the update scheduler.
type SchedulerConfig struct {
	// MaxUpdateCount is how many times one unit may be re-queued within a
	// single flush before it is reported as an update loop.
	MaxUpdateCount int `json:"maxUpdateCount,omitempty" yaml:"maxUpdateCount,omitempty" toml:"maxUpdateCount,omitempty"`
}

// ServerConfig controls the live server.
type ServerConfig struct {
	Addr   string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`
	WSPath string `json:"wsPath,omitempty" yaml:"wsPath,omitempty" toml:"wsPath,omitempty"`

	// ShutdownTimeout is a duration string (e.g. "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty" toml:"shutdownTimeout,omitempty"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" toml:"namespace,omitempty"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
}

// TracingConfig controls OpenTelemetry spans.
type TracingConfig struct {
	Enabled    bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty" toml:"tracerName,omitempty"`
}

// LogConfig controls the slog handler built by the CLI.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
}

// SnapshotConfig selects where observable state is persisted.
type SnapshotConfig struct {
	// Backend is "", "bolt" or "s3".
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty"`

	// Path is the bbolt database file.
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`

	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`

	// Key names the snapshot within the store.
	Key string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from dir, trying ripple.json, ripple.yaml,
// ripple.yml and ripple.toml in that order.
func Load(dir string) (*Config, error) {
	if path, ok := Find(dir); ok {
		return LoadFile(path)
	}
	return nil, errors.New("C001").
		WithDetail("No " + FileBaseName + ".{json,yaml,yml,toml} found in " + dir)
}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, ext := range searchOrder {
		path := filepath.Join(dir, FileBaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := Find(dir)
	return ok
}

// LoadFile reads configuration from path. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").WithDetail("No config at " + path)
		}
		return nil, errors.New("C002").Wrap(err)
	}

	cfg := &Config{}
	if err := decode(path, data, cfg); err != nil {
		return nil, errors.New("C002").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

func encode(path string, cfg *Config) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, in the format its extension names.
func (c *Config) SaveTo(path string) error {
	data, err := encode(path, c)
	if err != nil {
		return errors.New("C002").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C002").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Scheduler.MaxUpdateCount == 0 {
		c.Scheduler.MaxUpdateCount = DefaultMaxUpdateCount
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Snapshot.Key == "" {
		c.Snapshot.Key = DefaultSnapshotKey
	}
	if c.Snapshot.Backend == BackendBolt && c.Snapshot.Path == "" {
		c.Snapshot.Path = DefaultSnapshotPath
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Scheduler.MaxUpdateCount < 0 {
		return errors.New("C003").WithDetail("scheduler.maxUpdateCount must not be negative")
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return errors.New("C003").WithDetail("server.shutdownTimeout: " + err.Error())
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return errors.New("C003").WithDetail("server.wsPath must start with /")
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		return errors.New("C003").WithDetail("log.level must be debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("C003").WithDetail("log.format must be text or json")
	}
	switch c.Snapshot.Backend {
	case BackendNone, BackendBolt:
	case BackendS3:
		if c.Snapshot.Bucket == "" {
			return errors.New("C003").WithDetail("snapshot.bucket is required for the s3 backend")
		}
	default:
		return errors.New("C003").WithDetail("unknown snapshot.backend " + c.Snapshot.Backend)
	}
	return nil
}

// ShutdownDuration returns Server.ShutdownTimeout parsed as a duration.
func (c *Config) ShutdownDuration() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns Log.Level as an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := levels[strings.ToLower(c.Log.Level)]; ok {
		return l
	}
	return slog.LevelInfo
}
