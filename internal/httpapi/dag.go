package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"obs-engine/internal/cache"
	"obs-engine/internal/checks"
	"obs-engine/internal/compare"
	"obs-engine/internal/lineage"
	"obs-engine/internal/obserr"
)

const maxConcurrentEnrichments = 8

// cachedLineage is what actually lives in the tiered cache under a dag
// cache key: just the parts of the envelope that don't change between a
// miss and a later hit. Cached/ComputeTimeMs are always recomputed fresh.
type cachedLineage struct {
	Data     *LineageData
	Metadata LineageMetadata
}

// handleLineage serves GET /dag/{id}: resolve the comparison pair, compute
// the bounded lineage view, enrich every node with its broad-checks
// observability block, and cache the envelope in the warm layer.
func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	s.serveLineage(w, r)
}

// handleInvalidateOrLineage serves POST /dag/{id}. With ?action=invalidate
// it evicts every cached entry for the node; otherwise it behaves exactly
// like GET /dag/{id}, since POST-without-action is how a caller resends
// the same lineage query with a body-less request.
func (s *Server) handleInvalidateOrLineage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") == "invalidate" {
		id := chi.URLParam(r, "id")
		count := s.store.Cache().DeletePrefix("dag:" + id + ":")
		writeJSON(w, http.StatusOK, InvalidateResponse{Success: true, NodeID: id, InvalidatedCount: count})
		return
	}
	s.serveLineage(w, r)
}

func (s *Server) serveLineage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	requestedDepth, err := parseIntQuery(r, "maxDepth", 100)
	if err != nil {
		writeError(w, obserr.ErrValidation("maxDepth: %v", err))
		return
	}
	maxDepth := lineage.ClampDepth(requestedDepth)
	fresh := r.URL.Query().Get("fresh") == "true"

	compReq := comparisonRequestFromQuery(r, s.cfg.ArtifactsDir, s.cfg.SnapshotsDir)
	cacheKey := dagCacheKey(id, maxDepth, compReq)

	if !fresh {
		if raw, ok := s.store.Cache().Get(cacheKey); ok {
			var cached cachedLineage
			if err := json.Unmarshal(raw, &cached); err == nil {
				writeLineageEnvelope(w, LineageEnvelope{
					Data:          cached.Data,
					NodeID:        id,
					Metadata:      cached.Metadata,
					Cached:        true,
					ComputeTimeMs: time.Since(start).Milliseconds(),
				}, true)
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

	view, err := lineage.ComputeDAG(currentSlot.Bundle, id, maxDepth, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	sources := currentSourcesMap(s.store, s.cfg.ArtifactsDir)
	thresholds := s.thresholds()

	nodes := make([]*lineage.EnrichedAsset, 0, 1+len(view.Ancestors)+len(view.Descendants))
	nodes = append(nodes, view.Root)
	nodes = append(nodes, view.Ancestors...)
	nodes = append(nodes, view.Descendants...)

	observability := make([]*checks.BroadChecks, len(nodes))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxConcurrentEnrichments)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			observability[i] = checks.Evaluate(n.UniqueID, currentSlot.Bundle, previousSlot.Bundle, sources, thresholds, time.Now())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, err)
		return
	}

	toNode := func(idx int) *LineageNode {
		return &LineageNode{EnrichedAsset: nodes[idx], Observability: observability[idx]}
	}
	data := &LineageData{
		Root:        toNode(0),
		ParentDepth: view.ParentDepth,
		ChildDepth:  view.ChildDepth,
		Depth:       view.Depth,
	}
	offset := 1
	for range view.Ancestors {
		data.Ancestors = append(data.Ancestors, toNode(offset))
		offset++
	}
	for range view.Descendants {
		data.Descendants = append(data.Descendants, toNode(offset))
		offset++
	}

	metadata := LineageMetadata{
		ManifestVersion: currentSlot.Bundle.DbtVersion,
		GeneratedAt:     currentSlot.Bundle.GeneratedAt,
		CatalogVersion:  currentSlot.Bundle.DbtVersion,
		Comparison: ComparisonMeta{
			CurrentSource:  string(currentSlot.SourceTag),
			PreviousSource: string(previousSlot.SourceTag),
		},
	}

	if raw, err := json.Marshal(cachedLineage{Data: data, Metadata: metadata}); err == nil {
		s.store.Cache().Set(cacheKey, raw, cache.LayerWarm, cache.DefaultTTL(cache.LayerWarm))
	}

	writeLineageEnvelope(w, LineageEnvelope{
		Data:          data,
		NodeID:        id,
		Metadata:      metadata,
		Cached:        false,
		ComputeTimeMs: time.Since(start).Milliseconds(),
	}, false)
}

func writeLineageEnvelope(w http.ResponseWriter, envelope LineageEnvelope, cacheHit bool) {
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-Compute-Time-Ms", strconv.FormatInt(envelope.ComputeTimeMs, 10))
	w.Header().Set("Cache-Control", "public, max-age=1800")
	writeJSON(w, http.StatusOK, envelope)
}

func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
