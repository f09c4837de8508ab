package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"obs-engine/internal/cache"
	"obs-engine/internal/checks"
	"obs-engine/internal/compare"
	"obs-engine/internal/obserr"
	"obs-engine/internal/testreport"
)

// handleErrors serves GET /errors/{id}: the Test Aggregator's report for
// one node, filtered by the optional type/status query parameters and
// cached in the hot layer.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	q := r.URL.Query()
	testType := q.Get("testType")
	statusFilter := q.Get("statusFilter")
	fresh := q.Get("fresh") == "true"

	compReq := comparisonRequestFromQuery(r, s.cfg.ArtifactsDir, s.cfg.SnapshotsDir)
	cacheKey := errorsCacheKey(id, compReq, testType, statusFilter)

	if !fresh {
		if raw, ok := s.store.Cache().Get(cacheKey); ok {
			var report testreport.Report
			if err := json.Unmarshal(raw, &report); err == nil {
				writeErrorsEnvelope(w, &report, true, time.Since(start).Milliseconds())
				return
			}
		}
	}

	currentBundle, err := s.store.Bundle()
	if err != nil {
		writeError(w, err)
		return
	}
	currentSlot, previousSlot, err := compare.Resolve(compReq, currentBundle)
	if err != nil {
		writeError(w, err)
		return
	}
	if currentSlot.Bundle == nil {
		writeError(w, obserr.ErrValidation("no current artifact bundle available"))
		return
	}
	if _, ok := currentSlot.Bundle.Asset(id); !ok {
		writeError(w, obserr.ErrNotFound("node %q not found", id))
		return
	}

	sources := currentSourcesMap(s.store, s.cfg.ArtifactsDir)
	filter := testreport.Filter{
		TestType: testreport.Type(testType),
		Status:   checks.Status(statusFilter),
	}
	comparison := testreport.Comparison{
		CurrentSourceTag:  string(currentSlot.SourceTag),
		PreviousSourceTag: string(previousSlot.SourceTag),
	}

	report := testreport.Aggregate(id, currentSlot.Bundle, previousSlot.Bundle, sources, s.thresholds(), time.Now(), comparison, filter)

	if raw, err := json.Marshal(report); err == nil {
		s.store.Cache().Set(cacheKey, raw, cache.LayerHot, cache.DefaultTTL(cache.LayerHot))
	}

	writeErrorsEnvelope(w, report, false, time.Since(start).Milliseconds())
}

func writeErrorsEnvelope(w http.ResponseWriter, report *testreport.Report, cacheHit bool, computeMs int64) {
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-Compute-Time-Ms", strconv.FormatInt(computeMs, 10))
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, ErrorsEnvelope{Data: report, Cached: cacheHit, ComputeTimeMs: computeMs})
}
