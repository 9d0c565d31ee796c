package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
	assert.Equal(t, DefaultTracerName, cfg.Tracing.TracerName)
	assert.Equal(t, DefaultIndent, cfg.Render.Indent)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.True(t, cfg.Recover())
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	content := `
log:
  level: debug
  format: json
metrics:
  enabled: true
  namespace: ui
render:
  pretty: true
watch:
  debounce: 250ms
live:
  recover: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "ui", cfg.Metrics.Namespace)
	assert.True(t, cfg.Render.Pretty)
	assert.Equal(t, DefaultIndent, cfg.Render.Indent, "unset fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.False(t, cfg.Recover())
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Path())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	content := `{"render": {"pretty": true, "indent": "\t"}, "tracing": {"tracerName": "custom"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileNameJSON), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "\t", cfg.Render.Indent)
	assert.Equal(t, "custom", cfg.Tracing.TracerName)
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, New().Log, cfg.Log)
	assert.Empty(t, cfg.Path())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, "R021", coded.Code)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(bad, []byte("log: [unclosed"), 0o644))
	_, err = LoadFile(bad)
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, "R021", coded.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"namespace", func(c *Config) { c.Metrics.Namespace = "9lives" }},
		{"namespace dash", func(c *Config) { c.Metrics.Namespace = "my-app" }},
		{"debounce", func(c *Config) { c.Watch.Debounce = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var coded *errors.Error
			require.True(t, stderrors.As(err, &coded))
			assert.Equal(t, "R020", coded.Code)
		})
	}
}

func TestLoadFileValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	_, err := LoadFile(path)
	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, "R020", coded.Code)
	assert.Equal(t, path, coded.Location.File)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := New()
	cfg.Render.Pretty = true
	cfg.Watch.Debounce = 2 * time.Second
	off := false
	cfg.Live.Recover = &off
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.Render.Pretty)
	assert.Equal(t, 2*time.Second, loaded.Watch.Debounce)
	assert.False(t, loaded.Recover())

	assert.Error(t, (&Config{}).Save(), "Save without a path")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "seq", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(3), entry["seq"])

	buf.Reset()
	New().Logger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindRoot(nested)
	require.NoError(t, err)
	if found != "" {
		// A config file above the temp dir would be picked up; only check
		// that it is not inside the tree.
		assert.NotContains(t, found, root)
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0o644))
	found, err = FindRoot(nested)
	require.NoError(t, err)

	want, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, want, found)
	assert.True(t, Exists(root))
}
