package cmd

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/internal/observability"
	"github.com/xkilldash9x/vigil/pkg/probe/logfile"
	"github.com/xkilldash9x/vigil/pkg/wait"
)

// newLoglineCommand builds the "logline" subcommand: tail a log file until a
// matching line appears.
func newLoglineCommand(cfg *config.Config) *cobra.Command {
	var (
		wf      waitFlags
		pattern string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "logline <file>",
		Short: "Wait for a log file to emit a matching line",
		Long: `Logline tails the file (which may not exist yet) and waits until a line
matching the pattern shows up. Rotations are followed. Example:

  vigil logline /var/log/app/server.log --pattern "listening on :8080"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("logline")

			if pattern == "" && count <= 0 {
				return fmt.Errorf("no condition given; use --pattern or --count")
			}

			var conds []wait.Condition[*logfile.File]
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid --pattern: %w", err)
				}
				conds = append(conds, logfile.LineMatching(re))
			}
			if count > 0 {
				conds = append(conds, logfile.LineCount(count))
			}
			cond := conds[0]
			if len(conds) > 1 {
				cond = wait.And(conds...)
			}

			eng, err := wait.NewEngine(
				wf.spec(cmd, cfg),
				wait.WithLogger[*logfile.File](logger),
			)
			if err != nil {
				return err
			}

			file, err := logfile.Follow(args[0], logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := file.Close(); cerr != nil {
					logger.Debug("stopping tail", zap.Error(cerr))
				}
			}()

			start := time.Now()
			value, err := eng.Until(cmd.Context(), file, cond)
			if err != nil {
				return err
			}
			reportSuccess(logger, cond.Description(), value, start)
			return nil
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVar(&pattern, "pattern", "", "regular expression a log line must match")
	cmd.Flags().IntVar(&count, "count", 0, "minimum number of log lines that must have appeared")
	return cmd
}
