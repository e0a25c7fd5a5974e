package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/CageChen/layerhub/internal/handler"
	"github.com/CageChen/layerhub/internal/logger"
	"github.com/CageChen/layerhub/internal/metrics"
	"github.com/CageChen/layerhub/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates and returns the serve subcommand
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layers over HTTP",
		Long: `Start the HTTP server. It renders markdown views and serves raw files
resolved across the layers, exposes lookups, listings and layer management
as a JSON API under /api, and pushes file changes over /api/ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if noWatch, _ := cmd.Flags().GetBool("no-watch"); noWatch {
				a.cfg.Server.Watch = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
		SilenceUsage: true,
	}

	cmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	cmd.Flags().Bool("no-watch", false, "Disable the file watcher")

	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	logger.Info("layerhub - layered content server")
	logger.Info("Config file: %s", cfg.ConfigFilePath())
	logger.Info("Serving %d layer(s), default extension %q:", len(cfg.Layers), a.finder.DefaultExtension())
	for i, l := range cfg.Layers {
		logger.Info("  [%d] %s -> %s", i, l.Alias, l.Path)
	}
	if root := a.finder.Root(); root != "" {
		logger.Info("Root: %s", root)
	}

	wsHandler := handler.NewWSHandler()
	hooks := handler.LayerHooks{CacheCleared: wsHandler.OnCacheCleared}

	// Setup file watcher if enabled
	if cfg.Server.Watch {
		w, err := watcher.New(a.finder, cfg.FilterSpec())
		if err != nil {
			logger.Warn("failed to create file watcher: %v", err)
		} else {
			w.OnChange(wsHandler.OnFileChange)
			if err := w.Start(); err != nil {
				logger.Warn("failed to start file watcher: %v", err)
			}
			defer func() { _ = w.Stop() }()

			hooks.LayerAdded = func(path string) {
				if err := w.Watch(path); err != nil {
					logger.Warn("failed to watch %s: %v", path, err)
				}
			}
			hooks.LayerRemoved = w.Unwatch
			logger.Info("File watcher enabled")
		}
	}

	srv := handler.Server{
		Files:  handler.NewFileHandler(a.finder, nil),
		Layers: handler.NewLayerHandler(cfg, a.finder, hooks),
		WS:     wsHandler,
	}
	if a.metrics != nil {
		srv.Metrics = metrics.Handler(a.metrics)
		logger.Info("Metrics enabled at /metrics")
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.NewRouter(srv),
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- httpServer.ListenAndServe()
	}()
	logger.Info("Server starting at: http://localhost:%d", cfg.Server.Port)

	select {
	case err := <-serverDone:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
