// Package cli is the pmreview command line: the terminal reviewer, the
// status report and database maintenance.
package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/pm-status-review/internal/config"
	"github.com/garyjia/pm-status-review/internal/container"
	"github.com/garyjia/pm-status-review/pkg/utils"
)

// Execute runs the root command
func Execute() error {
	return NewRoot().Execute()
}

var runProgram = func(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type rootOptions struct {
	configPath string
}

// NewRoot builds the command tree
func NewRoot() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "pmreview",
		Short:        "Daily project status review",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file; defaults and PMREVIEW_* environment apply when empty")

	root.AddCommand(
		tuiCmd(opts),
		reportCmd(opts),
		migrateCmd(opts),
		seedCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
}

// startContainer builds and starts the container; the caller closes it
func startContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*container.Container, error) {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
