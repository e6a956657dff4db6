// Command gridiron hosts dice-driven football matches over HTTP and replays
// recorded or scripted dice feeds from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/config"
	"github.com/MJE43/gridiron-dice/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	envFile   string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gridiron",
		Short:         "Dice-driven American football engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load (ignored when missing)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override GRIDIRON_LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "override GRIDIRON_LOG_FORMAT (json|console)")

	root.AddCommand(
		newServeCmd(a),
		newReplayCmd(a),
		newScriptCmd(a),
		newRulesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("cmd", cmd.Name()))
	return nil
}
