package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/internal/observability"
	"github.com/xkilldash9x/vigil/pkg/probe/postgres"
	"github.com/xkilldash9x/vigil/pkg/wait"
)

// newDatabaseCommand builds the "database" subcommand: wait for a PostgreSQL
// server to answer, or for a query against it to reach a desired result.
func newDatabaseCommand(cfg *config.Config) *cobra.Command {
	var (
		wf          waitFlags
		dsn         string
		countQuery  string
		wantRows    int64
		existsQuery string
	)

	cmd := &cobra.Command{
		Use:   "database",
		Short: "Wait for a PostgreSQL database to reach a desired state",
		Long: `Database pings the server until it answers, or polls a query until it
yields the wanted result. Useful as a migration gate:

  vigil database --dsn postgres://app@db/app \
      --exists-query "SELECT 1 FROM schema_migrations WHERE version = '42'"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("database")

			url := dsn
			if url == "" {
				url = cfg.Database.URL
			}
			if url == "" {
				return fmt.Errorf("no database DSN; pass --dsn or set database.url in config")
			}
			if countQuery != "" && existsQuery != "" {
				return fmt.Errorf("--query and --exists-query are mutually exclusive")
			}

			cond := postgres.Reachable()
			switch {
			case countQuery != "":
				cond = postgres.RowCount(countQuery, wantRows)
			case existsQuery != "":
				cond = postgres.RowExists(existsQuery)
			}

			eng, err := wait.NewEngine(
				wf.spec(cmd, cfg, postgres.ErrUnavailable),
				wait.WithLogger[*postgres.Database](logger),
			)
			if err != nil {
				return err
			}

			db, err := postgres.Connect(cmd.Context(), url, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			start := time.Now()
			value, err := eng.Until(cmd.Context(), db, cond)
			if err != nil {
				return err
			}
			reportSuccess(logger, cond.Description(), value, start)
			return nil
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (default from config database.url)")
	cmd.Flags().StringVar(&countQuery, "query", "", "single-value count query to poll, paired with --rows")
	cmd.Flags().Int64Var(&wantRows, "rows", 0, "count the --query must return")
	cmd.Flags().StringVar(&existsQuery, "exists-query", "", "query that must return at least one row")
	return cmd
}
