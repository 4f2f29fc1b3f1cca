package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/lighthouse-dashboard/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the dashboard HTTP server",
		Long: `Loads every known url once from the configured database, then serves the
dashboard page, the JSON API, health probes and Prometheus metrics until
SIGINT or SIGTERM.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(rt.cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", rt.cfg.Server.Port, err)
	}
	return serve(ctx, rt, listener)
}

// serve builds the application and runs the HTTP server on listener until ctx is done.
func serve(ctx context.Context, rt *cliEnv, listener net.Listener) error {
	logger := rt.logger
	a, err := newApp(ctx, rt.cfg, logger)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	if err := a.Hydrate(ctx); err != nil {
		logger.Warn("serving with an empty url store", zap.Error(err))
	}

	server := api.NewServer(api.Services{
		Sessions:   a.Sessions(),
		Store:      a.Store(),
		Auditor:    a.Auditor(),
		Repository: a.Repository(),
	}, rt.cfg, logger.Named("api"))

	srv := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server started", zap.String("addr", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
