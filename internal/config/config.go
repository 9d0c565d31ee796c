package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reconciler/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reconcile.yaml"

	// ConfigFileNameJSON is the JSON alternative, used when no YAML file
	// exists.
	ConfigFileNameJSON = "reconcile.json"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log handler format.
	DefaultLogFormat = "text"

	// DefaultNamespace is the default Prometheus metric namespace.
	DefaultNamespace = "reconcile"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/reconciler"

	// DefaultIndent is the default pretty-print indentation.
	DefaultIndent = "  "

	// DefaultDebounce is the default file watch debounce interval.
	DefaultDebounce = 100 * time.Millisecond
)

// Config represents the complete reconcile.yaml configuration.
type Config struct {
	// Log contains logging configuration.
	Log LogConfig `yaml:"log" json:"log"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Render contains HTML output configuration.
	Render RenderConfig `yaml:"render" json:"render"`

	// Watch contains file watching configuration.
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Live contains live tree configuration.
	Live LiveConfig `yaml:"live" json:"live"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers reconciliation metrics.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// TracerName is the instrumentation name passed to the tracer provider.
	TracerName string `yaml:"tracerName,omitempty" json:"tracerName,omitempty"`
}

// RenderConfig contains HTML output settings.
type RenderConfig struct {
	// Pretty enables indented HTML output.
	Pretty bool `yaml:"pretty,omitempty" json:"pretty,omitempty"`

	// Indent is the indentation string for pretty output.
	Indent string `yaml:"indent,omitempty" json:"indent,omitempty"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Debounce is how long to wait for more writes before reconciling.
	Debounce time.Duration `yaml:"debounce,omitempty" json:"debounce,omitempty"`
}

// LiveConfig contains live tree settings.
type LiveConfig struct {
	// Recover rebuilds the live tree when patches fail to apply. Nil means
	// the default (true).
	Recover *bool `yaml:"recover,omitempty" json:"recover,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory. It looks for
// reconcile.yaml, then reconcile.json. A directory with neither yields the
// defaults.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, ConfigFileNameJSON} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R021").
				WithFile(path).
				WithDetail("No configuration file found at " + path).
				Wrap(err)
		}
		return nil, errors.New("R021").WithFile(path).Wrap(err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R021").
			WithFile(path).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML or JSON").
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path as YAML.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New("R021").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R021").WithFile(path).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Render.Indent == "" {
		c.Render.Indent = DefaultIndent
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultDebounce
	}
}

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	invalid := func(detail, suggestion string) error {
		e := errors.New("R020").WithDetail(detail).WithSuggestion(suggestion)
		if c.configPath != "" {
			e.WithFile(c.configPath)
		}
		return e
	}

	if _, ok := ParseLevel(c.Log.Level); !ok {
		return invalid("log.level is "+quote(c.Log.Level), "Use one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format is "+quote(c.Log.Format), "Use text or json")
	}
	if !metricNamePattern.MatchString(c.Metrics.Namespace) {
		return invalid("metrics.namespace is "+quote(c.Metrics.Namespace), "Use letters, digits and underscores, not starting with a digit")
	}
	if c.Watch.Debounce < 0 {
		return invalid("watch.debounce is negative", "Use a positive duration such as 100ms")
	}
	return nil
}

// Recover reports whether live trees should rebuild after a failed apply.
func (c *Config) Recover() bool {
	return c.Live.Recover == nil || *c.Live.Recover
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Logger builds a structured logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, ConfigFileNameJSON} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindRoot walks up from startDir to the nearest directory holding a config
// file. It returns "" when there is none.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest config file above
// the working directory, or the defaults if there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindRoot(wd)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return New(), nil
	}
	return Load(root)
}

func quote(s string) string {
	return `"` + s + `"`
}
