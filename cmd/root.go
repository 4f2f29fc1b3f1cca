package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/app"
	"github.com/JakeFAU/lighthouse-dashboard/internal/config"
	"github.com/JakeFAU/lighthouse-dashboard/internal/logging"
)

// runtimeKeyType is the key for storing the loaded configuration in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// cliEnv is what the root command prepares for its subcommands.
type cliEnv struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Lighthouse Dashboard: analyze sites and keep their scores.",
		Long: `dashboard runs a small web application that submits a URL to the PageSpeed
Insights audit API, shows the five Lighthouse category scores, and saves the
results to a database so they can be tracked over time.`,
		SilenceUsage: true,

		// Loads config and the logger before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			ctx := context.WithValue(cmd.Context(), runtimeKey, &cliEnv{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*cliEnv); ok && rt != nil {
				_ = rt.logger.Sync() //nolint:errcheck // best-effort flush
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars use the DASHBOARD_ prefix")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*cliEnv, error) {
	rt, ok := ctx.Value(runtimeKey).(*cliEnv)
	if !ok || rt == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
