package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/pm-status-review/internal/container"
	"github.com/garyjia/pm-status-review/internal/infrastructure/backend"
	"github.com/garyjia/pm-status-review/pkg/database"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the review database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			dbCfg := cfg.ToContainerConfig().Database
			bundle, err := container.ProvideDatabase(&dbCfg, logger)
			if err != nil {
				return err
			}
			defer bundle.DB.Close()

			version, err := database.NewMigrator(bundle.DB, logger).SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s (schema version %d)\n", bundle.DB.Path(), version)
			return nil
		},
	}
}

func seedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo managers, projects and earlier reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			c, err := startContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			summary, err := backend.SeedDemoData(ctx, c.Repositories(), c.Now())
			if err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d managers, %d projects, %d tasks\n",
				summary.Managers, summary.Opportunities, summary.Tasks)
			return nil
		},
	}
}
