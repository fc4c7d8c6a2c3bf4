package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/interfaces/tui"
	"github.com/garyjia/pm-status-review/pkg/utils"
)

func tuiCmd(opts *rootOptions) *cobra.Command {
	var managerID, mode, logFile string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Review project status in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !entity.Mode(mode).IsValid() {
				return fmt.Errorf("unknown mode %q: want view or update", mode)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			// The screen belongs to the program, so logs go to a file
			logger, err := utils.NewFileLogger(cfg.Logger.Level, logFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logger.Sync()

			ctx := cmd.Context()
			c, err := startContainer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.Close()

			session := c.Registry().Create()
			defer c.Registry().Delete(session.ID())

			if managerID != "" {
				if err := session.Start(ctx); err != nil {
					return err
				}
				if err := session.SelectManager(ctx, managerID, entity.Mode(mode)); err != nil {
					return err
				}
			}
			return runProgram(tui.New(session, cfg.Review.BackendTimeout))
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "start reviewing this manager right away")
	cmd.Flags().StringVar(&mode, "mode", string(entity.ModeUpdate), "session mode used with --manager: view or update")
	cmd.Flags().StringVar(&logFile, "log-file", "logs/pmreview-tui.log", "where the reviewer writes its logs")
	return cmd
}
