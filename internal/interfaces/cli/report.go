package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/pm-status-review/internal/infrastructure/storage"
	"github.com/garyjia/pm-status-review/internal/report"
)

func reportCmd(opts *rootOptions) *cobra.Command {
	var (
		out  string
		keep int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export today's review status as an xlsx workbook",
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

			now := c.Now()
			gen := report.NewGenerator(c.Backend(), logger)

			var path string
			var summary *report.Summary
			if out != "" {
				path = out
				summary, err = gen.WriteFile(ctx, now, out)
			} else {
				store := storage.NewReportStore(cfg.Report.OutputDir, logger)
				path, summary, err = archive(cmd, gen, store, now, keep)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d managers, %d projects due today\n",
				path, summary.Managers, summary.DueTasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of the report directory")
	cmd.Flags().IntVar(&keep, "keep", 0, "keep only this many reports in the report directory (0 keeps all)")
	return cmd
}

// archive stores today's report in the report directory and prunes older
// ones when keep is set
func archive(cmd *cobra.Command, gen *report.Generator, store *storage.ReportStore, now time.Time, keep int) (string, *report.Summary, error) {
	ctx := cmd.Context()
	data, summary, err := gen.Render(ctx, now)
	if err != nil {
		return "", nil, err
	}
	path, err := store.Save(ctx, report.DefaultFileName(now), data)
	if err != nil {
		return "", nil, err
	}
	if keep > 0 {
		deleted, err := store.Prune(ctx, report.FileExt, keep)
		if err != nil {
			return "", nil, err
		}
		for _, name := range deleted {
			fmt.Fprintln(cmd.OutOrStdout(), "Removed", name)
		}
	}
	return path, summary, nil
}
