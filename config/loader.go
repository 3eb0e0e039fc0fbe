package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/parley/engine/rules"
)

// Load reads the YAML configuration file at path, applies PARLEY_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// Unknown keys are rejected. Environment overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Bot.Vars == nil {
		cfg.Bot.Vars = map[string]string{}
	}
	return cfg, nil
}

// Validate checks cfg for consistency. It returns a joined error listing
// all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Language.SystemPath) == "" {
		errs = append(errs, errors.New("language.system_path is required"))
	}
	for i, p := range cfg.Language.ExtraPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("language.extra_paths[%d] is empty", i))
		}
	}
	for k := range cfg.Bot.Vars {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, errors.New("bot.vars has an empty name"))
		}
	}
	if cfg.Engine.MaxRedirectDepth < 0 {
		errs = append(errs, fmt.Errorf("engine.max_redirect_depth must be >= 0, got %d", cfg.Engine.MaxRedirectDepth))
	}
	if cfg.Engine.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("engine.history_size must be >= 0, got %d", cfg.Engine.HistorySize))
	}
	if _, err := rules.ParsePrecedence(cfg.Engine.Precedence); err != nil {
		errs = append(errs, fmt.Errorf("engine.precedence: %w", err))
	}
	if cfg.Reload.Debounce < 0 {
		errs = append(errs, fmt.Errorf("reload.debounce must not be negative, got %s", cfg.Reload.Debounce))
	}
	if cfg.Reload.Watch && cfg.Reload.Debounce == 0 {
		errs = append(errs, errors.New("reload.debounce must be set when reload.watch is enabled"))
	}
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

// ApplyEnv overrides cfg fields from PARLEY_* environment variables.
//
//	PARLEY_LANG_PATH     language.system_path
//	PARLEY_BOT_NAME      bot.name
//	PARLEY_PRECEDENCE    engine.precedence
//	PARLEY_SEED          engine.seed
//	PARLEY_SESSIONS      sessions.path
//	PARLEY_WATCH         reload.watch
//	PARLEY_DEBOUNCE      reload.debounce
//	PARLEY_LOG_LEVEL     log.level
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("PARLEY_LANG_PATH"); v != "" {
		cfg.Language.SystemPath = v
	}
	if v := os.Getenv("PARLEY_BOT_NAME"); v != "" {
		cfg.Bot.Name = v
	}
	if v := os.Getenv("PARLEY_PRECEDENCE"); v != "" {
		cfg.Engine.Precedence = v
	}
	if v := os.Getenv("PARLEY_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: PARLEY_SEED: %w", err)
		}
		cfg.Engine.Seed = seed
	}
	if v := os.Getenv("PARLEY_SESSIONS"); v != "" {
		cfg.Sessions.Path = v
	}
	if v := os.Getenv("PARLEY_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PARLEY_WATCH: %w", err)
		}
		cfg.Reload.Watch = watch
	}
	if v := os.Getenv("PARLEY_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: PARLEY_DEBOUNCE: %w", err)
		}
		cfg.Reload.Debounce = d
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = LogLevel(strings.ToLower(v))
	}
	return nil
}

// ExpandHome replaces a leading "~/" in path with the user's home
// directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: expanding %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
