// Package config provides the configuration schema and loader for parley.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
type Config struct {
	Language LanguageConfig `yaml:"language"`
	Bot      BotConfig      `yaml:"bot"`
	Engine   EngineConfig   `yaml:"engine"`
	Sessions SessionsConfig `yaml:"sessions"`
	Reload   ReloadConfig   `yaml:"reload"`
	Log      LogConfig      `yaml:"log"`
}

// LanguageConfig locates the corpus.
type LanguageConfig struct {
	// SystemPath is the main language directory. Its custom/ subdirectory,
	// when present, is loaded right after it.
	SystemPath string `yaml:"system_path"`

	// ExtraPaths are loaded after the system path, in order.
	ExtraPaths []string `yaml:"extra_paths"`

	// Debug logs every resolved turn at debug level.
	Debug bool `yaml:"debug"`
}

// BotConfig holds the bot's personality values.
type BotConfig struct {
	Name string            `yaml:"name"`
	Vars map[string]string `yaml:"vars"`
}

// EngineConfig tunes turn resolution.
type EngineConfig struct {
	MaxRedirectDepth int    `yaml:"max_redirect_depth"`
	HistorySize      int    `yaml:"history_size"`
	Precedence       string `yaml:"precedence"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	// Undefined is substituted for unknown <get> and <bot> variables.
	Undefined string `yaml:"undefined"`
}

// SessionsConfig configures session persistence.
type SessionsConfig struct {
	// Path is the bbolt database file. Empty disables /save and /load.
	Path string `yaml:"path"`
}

// ReloadConfig configures hot reload of the corpus.
type ReloadConfig struct {
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Language: LanguageConfig{SystemPath: "./lang"},
		Bot:      BotConfig{Vars: map[string]string{}},
		Engine: EngineConfig{
			MaxRedirectDepth: 10,
			HistorySize:      9,
			Precedence:       "pooled",
			Undefined:        "undefined",
		},
		Sessions: SessionsConfig{Path: "~/.parley/sessions.db"},
		Reload:   ReloadConfig{Debounce: 500 * time.Millisecond},
		Log:      LogConfig{Level: LogInfo},
	}
}

// BotVars returns the configured bot variables with Name folded in as
// "name".
func (c *Config) BotVars() map[string]string {
	vars := make(map[string]string, len(c.Bot.Vars)+1)
	for k, v := range c.Bot.Vars {
		vars[k] = v
	}
	if c.Bot.Name != "" {
		vars["name"] = c.Bot.Name
	}
	return vars
}

// LanguageDirs returns the system path followed by the extra paths.
func (c *Config) LanguageDirs() (system string, extra []string) {
	return c.Language.SystemPath, c.Language.ExtraPaths
}
