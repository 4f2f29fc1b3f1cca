package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/app"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
	"github.com/JakeFAU/lighthouse-dashboard/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the urls and results tables",
		Long: `Creates the urls and results tables in the configured database when they
do not exist yet. The memory driver has nothing to migrate.`,
		RunE: runMigrateCommand,
	}
}

func runMigrateCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	if rt.cfg.DB.Driver == config.DriverMemory {
		rt.logger.Info("memory driver selected; nothing to migrate")
		return nil
	}
	cfg := rt.cfg
	cfg.DB.Migrate = true
	repo, err := app.OpenRepository(cmd.Context(), cfg, system.New())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer repo.Close()
	rt.logger.Info("database migrated", zap.String("driver", cfg.DB.Driver))
	return nil
}
