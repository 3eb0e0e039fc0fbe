// Parley is a rule-based chat bot driven by .rive and .lua language files.
// Usage: parley [flags] [lang-dir]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nathoo/parley/cli"
	"github.com/nathoo/parley/config"
	"github.com/nathoo/parley/engine"
	"github.com/nathoo/parley/engine/rules"
	"github.com/nathoo/parley/engine/state"
	"github.com/nathoo/parley/loader"
	"github.com/nathoo/parley/observe"
	"github.com/nathoo/parley/store"
	"github.com/nathoo/parley/tui"
	"github.com/nathoo/parley/watch"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	plain      bool
	scriptFile string
	trace      bool
	seed       int64
	verbose    bool
	watchFiles bool
)

var rootCmd = &cobra.Command{
	Use:   "parley [lang-dir]",
	Short: "Chat with a rule-based bot",
	Long: `parley loads a corpus of .rive and .lua language files and starts a
conversation with the bot they describe.

The language directory defaults to language.system_path from the config
file. Its custom/ subdirectory is loaded after it when present.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; anything else is worth reporting.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
	RunE: runChat,
}

var checkCmd = &cobra.Command{
	Use:   "check [dirs...]",
	Short: "Compile the language files and report every problem",
	Long: `check compiles the corpus exactly as the chat would and prints every
error and warning with its file and line. It exits non-zero when the corpus
does not compile.`,
	SilenceUsage: true,
	RunE:         runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "parley %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&plain, "plain", false, "use the plain line REPL instead of the TUI")
	rootCmd.Flags().StringVar(&scriptFile, "script", "", "play lines from a file and exit")
	rootCmd.Flags().BoolVar(&trace, "trace", false, "print trace output for every turn")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "seed the random source (0 = time-based)")
	rootCmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "reload the language files when they change")

	rootCmd.AddCommand(checkCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise the defaults, and
// applies PARLEY_* overrides.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg := config.Default()
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, config.Validate(cfg)
}

// newLogger builds a production zap logger at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		return nil, err
	}
	if verbose || cfg.Language.Debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Language.SystemPath = args[0]
	}
	if cmd.Flags().Changed("seed") {
		cfg.Engine.Seed = seed
	}
	if watchFiles {
		cfg.Reload.Watch = true
	}

	useTUI := scriptFile == "" && !plain && isTerminal()

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	// The TUI owns the terminal.
	if useTUI && !verbose {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs := loader.Layers(cfg.LanguageDirs())
	load := func() (*state.Index, error) {
		return loader.Load(dirs, loader.WithLogger(logger))
	}
	idx, err := load()
	if err != nil {
		return fmt.Errorf("loading language files: %w", err)
	}

	prec, err := rules.ParsePrecedence(cfg.Engine.Precedence)
	if err != nil {
		return err
	}
	eng := engine.New(idx,
		engine.WithLogger(logger),
		engine.WithMaxRedirectDepth(cfg.Engine.MaxRedirectDepth),
		engine.WithHistorySize(cfg.Engine.HistorySize),
		engine.WithPrecedence(prec),
		engine.WithSeed(cfg.Engine.Seed),
		engine.WithBotVars(cfg.BotVars()),
		engine.WithUndefined(cfg.Engine.Undefined),
	)

	rec, err := observe.NewRecorder()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	defer func() { _ = rec.Shutdown(context.Background()) }()
	rec.Attach(eng)

	reloader, err := watch.New(dirs, load, eng,
		watch.WithLogger(logger),
		watch.WithDebounce(cfg.Reload.Debounce),
		watch.WithNotify(rec.RecordReload))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if cfg.Reload.Watch {
		if err := reloader.Start(ctx); err != nil {
			return err
		}
	}
	defer reloader.Stop()

	sh := &cli.Shell{
		Engine:   eng,
		Session:  eng.NewSession(""),
		Reloader: reloader,
		Stats:    rec,
		Trace:    trace,
	}
	if cfg.Sessions.Path != "" {
		path, err := config.ExpandHome(cfg.Sessions.Path)
		if err != nil {
			return err
		}
		st, err := store.Open(path, logger)
		if err != nil {
			logger.Warn("session store unavailable", zap.String("path", path), zap.Error(err))
		} else {
			defer st.Close()
			sh.Store = st
		}
	}

	logger.Info("chat started",
		zap.String("session", sh.Session.ID),
		zap.Strings("dirs", dirs),
		zap.String("precedence", prec.String()))

	// Script mode: read lines from a file, echo them, force plain output.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(sh)
		c.In = f
		c.Out = cmd.OutOrStdout()
		c.EchoInput = true
		c.Log = logger
		return c.Run(ctx)
	}

	if !useTUI {
		c := cli.New(sh)
		c.Out = cmd.OutOrStdout()
		c.Log = logger
		err := c.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return tui.Run(ctx, sh)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dirs := args
	if len(dirs) == 0 {
		dirs = loader.Layers(cfg.LanguageDirs())
	}

	out := cmd.OutOrStdout()
	idx, err := loader.Load(dirs, loader.WithLogger(logger))
	if err != nil {
		var ce *loader.CompileError
		if errors.As(err, &ce) {
			for _, p := range ce.Errors {
				fmt.Fprintf(out, "error: %s\n", p)
			}
			for _, p := range ce.Warnings {
				fmt.Fprintf(out, "warning: %s\n", p)
			}
			return fmt.Errorf("%d error(s)", len(ce.Errors))
		}
		return err
	}

	fmt.Fprintf(out, "ok: %d triggers in %d topics, %d concept sets\n", idx.Triggers, len(idx.Topics), idx.Concepts.Len())
	if verbose && idx.Concepts.Len() > 0 {
		fmt.Fprintf(out, "sets: %s\n", strings.Join(idx.Concepts.Names(), ", "))
	}
	return nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
