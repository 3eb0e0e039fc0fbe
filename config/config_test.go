package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReader_Full(t *testing.T) {
	yaml := `
language:
  system_path: ./lang
  extra_paths: [./plugins/weather/lang]
  debug: true
bot:
  name: nano
  vars:
    mood: happy
engine:
  max_redirect_depth: 5
  history_size: 3
  precedence: topic-first
  seed: 42
  undefined: "?"
sessions:
  path: /tmp/sessions.db
reload:
  watch: true
  debounce: 250ms
log:
  level: debug
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "./lang", cfg.Language.SystemPath)
	assert.Equal(t, []string{"./plugins/weather/lang"}, cfg.Language.ExtraPaths)
	assert.True(t, cfg.Language.Debug)
	assert.Equal(t, 5, cfg.Engine.MaxRedirectDepth)
	assert.Equal(t, 3, cfg.Engine.HistorySize)
	assert.Equal(t, "topic-first", cfg.Engine.Precedence)
	assert.Equal(t, int64(42), cfg.Engine.Seed)
	assert.Equal(t, "?", cfg.Engine.Undefined)
	assert.Equal(t, "/tmp/sessions.db", cfg.Sessions.Path)
	assert.True(t, cfg.Reload.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Reload.Debounce)
	assert.Equal(t, LogDebug, cfg.Log.Level)
	assert.Equal(t, map[string]string{"mood": "happy", "name": "nano"}, cfg.BotVars())
}

func TestLoadFromReader_KeepsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("bot:\n  name: nina\n"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Engine, cfg.Engine)
	assert.Equal(t, def.Language.SystemPath, cfg.Language.SystemPath)
	assert.Equal(t, def.Reload.Debounce, cfg.Reload.Debounce)
	assert.NotNil(t, cfg.Bot.Vars)
}

func TestLoadFromReader_Empty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("engine:\n  max_depth: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"system path", func(c *Config) { c.Language.SystemPath = " " }, "language.system_path is required"},
		{"extra path", func(c *Config) { c.Language.ExtraPaths = []string{""} }, "language.extra_paths[0] is empty"},
		{"redirect depth", func(c *Config) { c.Engine.MaxRedirectDepth = -1 }, "engine.max_redirect_depth"},
		{"history", func(c *Config) { c.Engine.HistorySize = -2 }, "engine.history_size"},
		{"precedence", func(c *Config) { c.Engine.Precedence = "loudest" }, "engine.precedence"},
		{"debounce", func(c *Config) { c.Reload.Debounce = -time.Second }, "reload.debounce"},
		{"watch without debounce", func(c *Config) { c.Reload.Watch, c.Reload.Debounce = true, 0 }, "reload.watch"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"empty var", func(c *Config) { c.Bot.Vars[""] = "x" }, "bot.vars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.Precedence = "nope"
	cfg.Log.Level = "nope"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.precedence")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot:\n  name: nano\n"), 0o644))

	t.Setenv("PARLEY_PRECEDENCE", "topic-first")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nano", cfg.Bot.Name)
	assert.Equal(t, "topic-first", cfg.Engine.Precedence)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: open")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PARLEY_LANG_PATH", "/srv/lang")
	t.Setenv("PARLEY_BOT_NAME", "nina")
	t.Setenv("PARLEY_SEED", "7")
	t.Setenv("PARLEY_SESSIONS", "/srv/s.db")
	t.Setenv("PARLEY_WATCH", "true")
	t.Setenv("PARLEY_DEBOUNCE", "2s")
	t.Setenv("PARLEY_LOG_LEVEL", "WARN")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "/srv/lang", cfg.Language.SystemPath)
	assert.Equal(t, "nina", cfg.Bot.Name)
	assert.Equal(t, int64(7), cfg.Engine.Seed)
	assert.Equal(t, "/srv/s.db", cfg.Sessions.Path)
	assert.True(t, cfg.Reload.Watch)
	assert.Equal(t, 2*time.Second, cfg.Reload.Debounce)
	assert.Equal(t, LogWarn, cfg.Log.Level)
}

func TestApplyEnv_BadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PARLEY_SEED", "seven"},
		{"PARLEY_WATCH", "sometimes"},
		{"PARLEY_DEBOUNCE", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := ApplyEnv(Default())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := ExpandHome("~/.parley/sessions.db")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.parley/sessions.db", got)

	got, err = ExpandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
