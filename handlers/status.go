package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tvhmux/tvhmux/logging"
)

// StatusResponse reports process and refresh metadata as Unix seconds.
// Zero means the artifact has never been published.
type StatusResponse struct {
	StartTime          int64 `json:"start_time"`
	LastPlaylistUpdate int64 `json:"last_playlist_update"`
	LastEPGUpdate      int64 `json:"last_epg_update"`
	PlaylistChannels   int   `json:"playlist_channels"`
	EPGProgrammes      int   `json:"epg_programmes"`
}

// CreateStatusHandler serves refresh metadata so clients can detect
// staleness and reload.
func CreateStatusHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			return
		}

		snap := deps.Cache.Current()
		resp := StatusResponse{
			StartTime:          snap.StartTime.Unix(),
			LastPlaylistUpdate: unixOrZero(snap.LastPlaylistUpdate),
			LastEPGUpdate:      unixOrZero(snap.LastEPGUpdate),
			PlaylistChannels:   snap.PlaylistChannels,
			EPGProgrammes:      snap.EPGProgrammes,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			deps.Logger.Error("Error writing status response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
