// File: cmd/root.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/internal/observability"
)

// NewRootCommand builds a fresh command tree. Each invocation gets its own
// viper instance and config so executions never share flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	v := viper.New()
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "vigil",
		Short: "Vigil blocks until an external system reaches a desired state.",
		Long: `Vigil polls a probe (a web page, an HTTP endpoint, a database, a log
file) until a condition holds or a deadline passes. It exits 0 when the
condition was met and 1 otherwise, so it slots into scripts as a readiness
gate.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before any subcommand, setting up config and logging.
			if err := config.Setup(v, cfgFile); err != nil {
				return err
			}
			loaded, err := config.Load(v)
			if err != nil {
				// Fall back to a minimal logger so the error itself is visible.
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "vigil",
				})
				return err
			}
			*cfg = *loaded
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("starting vigil", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newPageCommand(cfg),
		newEndpointCommand(cfg),
		newDatabaseCommand(cfg),
		newLoglineCommand(cfg),
	)
	return rootCmd
}

// Execute runs the CLI with the given context and returns the command error
// after logging it.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}
