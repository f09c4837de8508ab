package httpapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"obs-engine/internal/artifact"
	"obs-engine/internal/compare"
	"obs-engine/internal/store"
)

func comparisonRequestFromQuery(r *http.Request, workDir, snapshotsDir string) compare.Request {
	q := r.URL.Query()
	return compare.Request{
		CurrentSnapshot:      q.Get("currentSnapshot"),
		PreviousSnapshot:     q.Get("previousSnapshot"),
		PreviousManifestPath: q.Get("previousManifestPath"),
		PreviousCatalogPath:  q.Get("previousCatalogPath"),
		WorkDir:              workDir,
		SnapshotsDir:         snapshotsDir,
	}
}

// sentinel substitutes "current"/"auto" for missing comparison parameters
// when building a cache key.
func sentinel(value, whenEmpty string) string {
	if value == "" {
		return whenEmpty
	}
	return value
}

func dagCacheKey(id string, maxDepth int, req compare.Request) string {
	parts := []string{
		"dag", id, strconv.Itoa(maxDepth),
		sentinel(req.CurrentSnapshot, "current"),
		sentinel(req.PreviousSnapshot, "auto"),
		sentinel(req.PreviousManifestPath, "auto"),
		sentinel(req.PreviousCatalogPath, "auto"),
	}
	return strings.Join(parts, ":")
}

func errorsCacheKey(id string, req compare.Request, testType, statusFilter string) string {
	parts := []string{
		"errors", id,
		sentinel(req.CurrentSnapshot, "current"),
		sentinel(req.PreviousSnapshot, "auto"),
		sentinel(req.PreviousManifestPath, "auto"),
		sentinel(req.PreviousCatalogPath, "auto"),
		sentinel(testType, "any"),
		sentinel(statusFilter, "any"),
	}
	return strings.Join(parts, ":")
}

func currentSourcesMap(st *store.Store, workDir string) artifact.FreshnessMap {
	m, err := st.SourcesFor(filepath.Join(workDir, "sources.json"))
	if err != nil {
		return nil
	}
	return m
}
