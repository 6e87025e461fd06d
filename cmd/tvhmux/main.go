package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tvhmux/tvhmux/archive"
	"github.com/tvhmux/tvhmux/cache"
	"github.com/tvhmux/tvhmux/config"
	"github.com/tvhmux/tvhmux/epg"
	"github.com/tvhmux/tvhmux/handlers"
	"github.com/tvhmux/tvhmux/logging"
	"github.com/tvhmux/tvhmux/refresh"
	"github.com/tvhmux/tvhmux/tvheadend"
)

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	cfg.Print()

	level := logging.ParseLogLevel(cfg.Log.Level)
	var logger *logging.Logger
	if cfg.Log.File != "" {
		logger = logging.NewRotating(level, "", cfg.Log.File)
	} else {
		logger = logging.New(level, "")
	}

	cacheMgr := cache.NewManager(time.Now())
	retention := epg.NewStore(cfg.EPG.Retention.Enabled, cfg.EPG.Retention.Days, cfg.RetentionSizeBytes())
	client := tvheadend.New(cfg.BackendURL(), cfg.Backend.Timeout)

	var archiveStore *archive.Store
	if cfg.Archive.Dir != "" {
		archiveStore, err = archive.Open(cfg.Archive.Dir)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer func() {
			if err := archiveStore.Close(); err != nil {
				log.Printf("Error closing archive: %v", err)
			}
		}()
	}

	orchestrator := refresh.New(cfg, client, cacheMgr, retention, archiveStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve the last archived artifacts until the first refresh lands
	if err := orchestrator.Bootstrap(ctx); err != nil {
		logger.Warn("Archive bootstrap failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if cfg.Archive.Bootstrap {
		// Initial refresh covers only artifacts the archive could not
		// restore, and runs in the background so startup never blocks
		// on the backend
		go func() {
			if err := orchestrator.RefreshMissing(ctx); err != nil {
				logger.Error("Initial refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	go orchestrator.Run(ctx)

	srv := &http.Server{
		Addr: net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler: handlers.SetupRoutes(handlers.Dependencies{
			Logger:    logger,
			Cache:     cacheMgr,
			Refresher: orchestrator,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", map[string]interface{}{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
