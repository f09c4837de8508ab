package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"obs-engine/internal/cache"
	"obs-engine/internal/obserr"
)

// handleCacheStats serves GET /cache/stats: the aggregate DebugInfo plus
// the configured TTLs for each layer.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	info := s.store.Cache().DebugInfo()
	resp := CacheStatsResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Cache: cacheSummary{
			EntryCount: info.EntryCount,
			StatsCount: info.StatsCount,
			ByLayer: map[string]int{
				string(cache.LayerHot):  info.LayerCounts[cache.LayerHot],
				string(cache.LayerWarm): info.LayerCounts[cache.LayerWarm],
				string(cache.LayerCold): info.LayerCounts[cache.LayerCold],
			},
		},
		Performance: cachePerformance{
			Hits:      info.Hits,
			Misses:    info.Misses,
			Evictions: info.Evictions,
			HitRate:   info.HitRate,
		},
		TTL: cacheTTL{
			HotSeconds:  int64(cache.DefaultTTL(cache.LayerHot).Seconds()),
			WarmSeconds: int64(cache.DefaultTTL(cache.LayerWarm).Seconds()),
			ColdSeconds: int64(cache.DefaultTTL(cache.LayerCold).Seconds()),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCacheClear serves POST /cache/clear: either "clear-all" or
// "clear-layer" (requiring a layer field).
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req CacheClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, obserr.ErrValidation("invalid request body: %v", err))
		return
	}

	var cleared int
	switch req.Action {
	case "clear-all":
		before := s.store.Cache().DebugInfo().EntryCount
		s.store.Cache().Clear()
		cleared = before
	case "clear-layer":
		layer := cache.Layer(req.Layer)
		switch layer {
		case cache.LayerHot, cache.LayerWarm, cache.LayerCold:
		default:
			writeError(w, obserr.ErrValidation("unknown cache layer %q", req.Layer))
			return
		}
		cleared = s.store.Cache().InvalidateLayer(layer)
	default:
		writeError(w, obserr.ErrValidation("unknown cache action %q", req.Action))
		return
	}

	writeJSON(w, http.StatusOK, CacheClearResponse{
		Success:           true,
		Action:            req.Action,
		TotalItemsCleared: cleared,
		ClearedAt:         time.Now().UTC().Format(time.RFC3339),
	})
}
