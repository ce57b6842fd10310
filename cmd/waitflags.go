package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/pkg/wait"
)

// waitFlags are the polling knobs shared by every wait command. Flag values
// override the config file only when explicitly set, so "--timeout 0" still
// means "try exactly once".
type waitFlags struct {
	timeout  time.Duration
	interval time.Duration
}

func (f *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "overall wait deadline; 0 evaluates the condition exactly once (default from config)")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "pause between poll attempts (default from config)")
}

// spec merges config defaults with any explicitly set flags and attaches
// the ignored transient failure kinds for this command.
func (f *waitFlags) spec(cmd *cobra.Command, cfg *config.Config, ignore ...error) wait.Spec {
	spec := wait.Spec{
		Timeout:  cfg.Wait.Timeout,
		Interval: cfg.Wait.Interval,
		Ignore:   ignore,
	}
	if cmd.Flags().Changed("timeout") {
		spec.Timeout = f.timeout
	}
	if cmd.Flags().Changed("interval") {
		spec.Interval = f.interval
	}
	return spec
}

// reportSuccess logs the satisfied condition uniformly across commands.
func reportSuccess(logger *zap.Logger, description string, value any, start time.Time) {
	logger.Info("condition satisfied",
		zap.String("condition", description),
		zap.Any("value", value),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
}
