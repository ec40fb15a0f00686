package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/provider"
	"github.com/sydlexius/driftwave/internal/run"
	"github.com/sydlexius/driftwave/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGenerate triggers one generation run. The request may carry explicit
// seed track IDs and a full generator config; both are optional. Without
// track IDs the run uses the stored selection or the now-playing fallback.
func (r *Router) handleGenerate(w http.ResponseWriter, req *http.Request) {
	var body struct {
		TrackIDs []string    `json:"track_ids"`
		Config   *run.Config `json:"config"`
	}
	// An empty body is fine: defaults plus the stored selection.
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(body.TrackIDs) > 0 {
		tracks, err := r.resolveTracks(req, body.TrackIDs)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		r.selection.SetSelected(tracks)
	}

	cfg := r.generator
	if body.Config != nil {
		cfg = *body.Config
	}
	cfg, err := run.NewConfig(cfg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := r.orchestrator.Run(req.Context(), cfg)
	switch {
	case errors.Is(err, run.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, run.ErrNoSeeds):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, run.ErrNoMatches):
		// A successful run with nothing to show for it.
		writeJSON(w, http.StatusOK, result)
	case err != nil:
		r.logger.Error("generation run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (r *Router) handleLatestRun(w http.ResponseWriter, req *http.Request) {
	result := r.orchestrator.Latest()
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs yet"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleSetSelection(w http.ResponseWriter, req *http.Request) {
	var body struct {
		TrackIDs []string `json:"track_ids"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	tracks, err := r.resolveTracks(req, body.TrackIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	r.selection.SetSelected(tracks)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "selected": len(tracks)})
}

func (r *Router) handleClearSelection(w http.ResponseWriter, req *http.Request) {
	r.selection.ClearSelected()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetNowPlaying records what the player reports. A null or empty
// track_id clears it.
func (r *Router) handleSetNowPlaying(w http.ResponseWriter, req *http.Request) {
	var body struct {
		TrackID string `json:"track_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.TrackID == "" {
		r.selection.SetNowPlaying(nil)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	track, err := r.library.GetByID(req.Context(), body.TrackID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if track == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown track: " + body.TrackID})
		return
	}
	r.selection.SetNowPlaying(track)
	if r.eventBus != nil {
		r.eventBus.Publish(event.Event{
			Type: event.PlaybackProgress,
			Data: map[string]any{"track_id": track.ID},
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleRescan(w http.ResponseWriter, req *http.Request) {
	result, err := r.scanner.Scan(req.Context())
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleLibraryStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":     r.index.Ready(),
		"tracks":    r.index.Size(),
		"last_scan": r.scanner.Last(),
	})
}

func (r *Router) handleQueue(w http.ResponseWriter, req *http.Request) {
	ids, err := r.queue.TrackIDs(req.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining": len(ids),
		"track_ids": ids,
	})
}

// handleQueueNext hands the player its next track, consuming the queue
// head. An empty queue is 404, not an error.
func (r *Router) handleQueueNext(w http.ResponseWriter, req *http.Request) {
	id, err := r.queue.Pop(req.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "queue is empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"track_id": id})
}

func (r *Router) handleCacheClear(w http.ResponseWriter, req *http.Request) {
	cleared := r.cache.Len()
	r.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cleared": cleared})
}

func (r *Router) handleSetProviderKey(w http.ResponseWriter, req *http.Request) {
	name, ok := providerName(req)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider"})
		return
	}
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "api_key is required"})
		return
	}
	if err := r.providerSettings.SetAPIKey(req.Context(), name, body.APIKey); err != nil {
		r.logger.Error("failed to store API key", "provider", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleDeleteProviderKey(w http.ResponseWriter, req *http.Request) {
	name, ok := providerName(req)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider"})
		return
	}
	if err := r.providerSettings.DeleteAPIKey(req.Context(), name); err != nil {
		r.logger.Error("failed to delete API key", "provider", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// resolveTracks looks up every requested ID; one unknown ID fails the lot.
func (r *Router) resolveTracks(req *http.Request, ids []string) ([]library.Track, error) {
	tracks := make([]library.Track, 0, len(ids))
	for _, id := range ids {
		track, err := r.library.GetByID(req.Context(), id)
		if err != nil {
			return nil, errors.New("internal error")
		}
		if track == nil {
			return nil, errors.New("unknown track: " + id)
		}
		tracks = append(tracks, *track)
	}
	return tracks, nil
}

func providerName(req *http.Request) (provider.Name, bool) {
	name := provider.Name(req.PathValue("name"))
	for _, known := range provider.AllNames() {
		if name == known {
			return name, true
		}
	}
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
