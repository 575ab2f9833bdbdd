// Package main is the entry point for the eggexpr command.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/eggexpr/pkg/config"
	"github.com/lemonberrylabs/eggexpr/pkg/engine"
	"github.com/lemonberrylabs/eggexpr/pkg/expr"
	"github.com/lemonberrylabs/eggexpr/pkg/stdlib"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globals holds the persistent flag values and the state built from them
// before any subcommand runs.
var globals struct {
	configPath string
	logLevel   string
	logFormat  string
	cpuProfile string

	cfg      config.Config
	logger   *slog.Logger
	profiler interface{ Stop() }
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "eggexpr",
		Short:             "Parse, fold and evaluate eggexpr expressions",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if globals.profiler != nil {
				globals.profiler.Stop()
				globals.profiler = nil
			}
		},
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("eggexpr version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&globals.configPath, "config", "", "YAML config file (env EGGEXPR_CONFIG)")
	pf.StringVar(&globals.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (env EGGEXPR_LOG_LEVEL)")
	pf.StringVar(&globals.logFormat, "log-format", "", "Log format: text or json (env EGGEXPR_LOG_FORMAT)")
	pf.StringVar(&globals.cpuProfile, "cpuprofile", "", "Write a CPU profile to this directory")

	root.AddCommand(newEvalCmd(), newExpandCmd(), newServeCmd(), newReplCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, applies flag overrides, installs the
// default logger and starts profiling when requested.
func setup(cmd *cobra.Command, _ []string) error {
	path := globals.configPath
	if path == "" {
		path = os.Getenv("EGGEXPR_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if globals.logLevel != "" {
		cfg.Log.Level = globals.logLevel
	}
	if globals.logFormat != "" {
		cfg.Log.Format = globals.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	globals.cfg = cfg
	globals.logger = cfg.Logger()
	slog.SetDefault(globals.logger)

	if globals.cpuProfile != "" {
		globals.profiler = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(globals.cpuProfile),
			profile.Quiet,
			profile.NoShutdownHook,
		)
		globals.logger.Debug("cpu profiling started", "dir", globals.cpuProfile)
	}
	return nil
}

// engineFlags are the evaluation flags shared by eval, expand and repl.
type engineFlags struct {
	strict bool
	noFold bool
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on undefined variables instead of resolving them to null")
	cmd.Flags().BoolVar(&f.noFold, "no-fold", false, "Disable constant folding")
}

// newEngine builds an engine from the loaded configuration and f.
func newEngine(f engineFlags) (*engine.Engine, *stdlib.Registry, error) {
	cfg := globals.cfg
	mode := cfg.ResolutionMode()
	if f.strict {
		mode = expr.ModeStrict
	}

	reg := stdlib.NewRegistry()
	reg.SetLogger(globals.logger)

	eng, err := engine.New(engine.Options{
		Whitelist:   cfg.BuildWhitelist(),
		Mode:        mode,
		DisableFold: !cfg.Fold || f.noFold,
		CacheSize:   cfg.CacheSize,
		Functions:   reg,
		Logger:      globals.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}
	return eng, reg, nil
}
