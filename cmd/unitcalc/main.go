// Package main is the entry point for the unitcalc command.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/unitcalc/pkg/config"
	"github.com/lemonberrylabs/unitcalc/pkg/store"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "unitcalc",
		Short: "Calculator for expressions over physical quantities",
		Long: `unitcalc evaluates arithmetic over quantities with units, such as
"100 kg * 9.8 m/s^2 : N", and manages the unit and prefix definitions
those expressions are checked against.

Run without arguments to start the interactive calculator.`,
		Version:      version + " (commit=" + commit + ", built=" + date + ")",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runREPL,
	}
	root.SetVersionTemplate("unitcalc version {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./unitcalc.yaml or $XDG_CONFIG_HOME/unitcalc/unitcalc.yaml)")
	pf.String("registry", defaults.Registry.Source, `unit definitions to start with: "standard", a registry file, or "" for none (env UNITCALC_REGISTRY_SOURCE)`)
	pf.String("log-level", defaults.Log.Level, "log level: debug, info, warn or error (env UNITCALC_LOG_LEVEL)")
	pf.String("exponent-policy", defaults.Eval.ExponentPolicy, "exponents with units: strict or raw (env UNITCALC_EVAL_EXPONENT_POLICY)")
	pf.Int("history-size", defaults.Eval.HistorySize, "number of evaluations kept in history, 0 to disable (env UNITCALC_EVAL_HISTORY_SIZE)")

	root.AddCommand(
		newReplCmd(),
		newEvalCmd(),
		newConvertCmd(),
		newServeCmd(),
		newUnitsCmd(),
		newPrefixesCmd(),
		newDefCmd(),
		newFmtCmd(),
	)
	return root
}

// app is the state shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	session *store.Session
}

// setup loads configuration and builds the logger and session.
func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.LoadOptions{ConfigFilePath: path, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}

	level, _ := cfg.LogLevel()
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: true,
	})

	reg, err := cfg.Registry.Load()
	if err != nil {
		return nil, err
	}
	policy, _ := cfg.ExponentPolicy()
	session, err := store.New(reg, store.Options{
		HistorySize:    cfg.Eval.HistorySize,
		ExponentPolicy: policy,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("registry loaded", "source", cfg.Registry.Source, "extra", cfg.Registry.Extra,
		"units", len(session.Units()), "prefixes", len(session.Prefixes()))

	return &app{cfg: cfg, logger: logger, session: session}, nil
}
