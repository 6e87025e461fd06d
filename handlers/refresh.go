package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tvhmux/tvhmux/logging"
)

// CreateRefreshHandler triggers one playlist and guide refresh cycle
// outside the schedule. If a refresh is already running the request
// joins it, so concurrent triggers never cause duplicate fetches. The
// response reports the outcome of this one attempt.
func CreateRefreshHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			return
		}

		deps.Logger.Info("Manual refresh requested", map[string]interface{}{
			"remote": r.RemoteAddr,
		})

		// The cycle is shared with joined callers, so a disconnecting
		// client must not cancel it out from under them
		if err := deps.Refresher.RefreshAll(context.WithoutCancel(r.Context())); err != nil {
			logging.WriteJSONError(w, deps.Logger, "Refresh failed", http.StatusBadGateway, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			deps.Logger.Error("Error writing refresh response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
