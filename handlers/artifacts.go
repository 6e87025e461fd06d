package handlers

import (
	"net/http"

	"github.com/tvhmux/tvhmux/logging"
)

// CreatePlaylistHandler serves the current published playlist. Before
// the first successful refresh it answers 204 No Content.
func CreatePlaylistHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			return
		}

		snap := deps.Cache.Current()
		if !snap.HasPlaylist() {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/x-mpegurl")
		if _, err := w.Write([]byte(snap.Playlist)); err != nil {
			deps.Logger.Error("Error writing playlist response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// CreateEPGHandler serves the current published guide document. Before
// the first successful refresh it answers 204 No Content.
func CreateEPGHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			return
		}

		snap := deps.Cache.Current()
		if !snap.HasEPG() {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		if _, err := w.Write(snap.EPG); err != nil {
			deps.Logger.Error("Error writing guide response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
