// Package handlers exposes the served artifacts and refresh controls
// over HTTP.
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvhmux/tvhmux/cache"
	"github.com/tvhmux/tvhmux/logging"
)

// RefreshTrigger starts a refresh cycle on demand, joining one already
// in flight instead of running a duplicate.
type RefreshTrigger interface {
	RefreshAll(ctx context.Context) error
}

// Dependencies holds all the dependencies needed by the handlers
type Dependencies struct {
	Logger    *logging.Logger
	Cache     *cache.Manager
	Refresher RefreshTrigger
}

// SetupRoutes configures all HTTP routes and handlers
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Error writing health response: %v", err)
		}
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/playlist.m3u", CreatePlaylistHandler(deps))
	mux.HandleFunc("/epg.xml", CreateEPGHandler(deps))
	mux.HandleFunc("/status", CreateStatusHandler(deps))
	mux.HandleFunc("/refresh", CreateRefreshHandler(deps))

	return logging.RequestLogger(deps.Logger, mux)
}
