package main

import (
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"nutrirag/internal/config"
	"nutrirag/internal/logger"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	cfgPath  string
	logLevel string
	retries  uint
	cfg      *config.AppConfig
	log      *charmlog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "nutrirag",
		Short:         "Nutrition knowledge-base assistant and meal logger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to YAML config (default ./config.yaml, then ~/.config/nutrirag/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flags.UintVar(&a.retries, "retries", 0, "retry provider failures this many times with exponential backoff")

	root.AddCommand(
		ingestCmd(a),
		askCmd(a),
		analyzeCmd(a),
		todayCmd(a),
		historyCmd(a),
		chatCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return err
	}
	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logger.New(logger.Config{Level: level, JSON: a.cfg.Log.JSON, Output: cmd.ErrOrStderr()})
	return nil
}
