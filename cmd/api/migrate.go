package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/blog-service/internal/persistence"
)

func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if dir == "" {
				dir = rt.cfg.Postgres.MigrationsDir
			}
			return persistence.RunMigrations(cmd.Context(), rt.pg.PoolHandle(), dir, rt.logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}
