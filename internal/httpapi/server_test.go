package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obs-engine/internal/config"
	"obs-engine/internal/store"
)

func writeChainArtifacts(t *testing.T, dir string) {
	t.Helper()
	manifest := `{
	  "metadata": {"dbt_version": "1.7.0", "generated_at": "2026-01-01T00:00:00Z"},
	  "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model", "depends_on": {"nodes": ["model.proj.b"]}},
	    "model.proj.b": {"unique_id": "model.proj.b", "name": "b", "resource_type": "model"}
	  },
	  "sources": {}, "macros": {}
	}`
	catalog := `{
	  "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "metadata": {"type": "table"}, "columns": {}, "stats": {}},
	    "model.proj.b": {"unique_id": "model.proj.b", "metadata": {"type": "table"}, "columns": {}, "stats": {}}
	  },
	  "sources": {}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.json"), []byte(catalog), 0o600))
}

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	writeChainArtifacts(t, dir)

	st := store.New(dir, nil)
	cfg := &config.Config{
		ArtifactsDir:                       dir,
		SnapshotsDir:                       "snapshots",
		VolumeThresholdPct:                 25,
		FreshnessThresholdMinutes:          180,
		ReferenceFreshnessThresholdMinutes: 7 * 24 * 60,
	}
	return NewServer(st, cfg, nil), st
}

func TestHandleHealthz_ReturnsOK(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleLineage_ReturnsRootAndParent(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope LineageEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "model.proj.a", envelope.NodeID)
	require.NotNil(t, envelope.Data.Root)
	assert.Equal(t, "model.proj.a", envelope.Data.Root.UniqueID)
	require.Len(t, envelope.Data.Ancestors, 1)
	assert.Equal(t, "model.proj.b", envelope.Data.Ancestors[0].UniqueID)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestHandleLineage_SecondRequestHitsCache(t *testing.T) {
	s, _ := testServer(t)

	rec1 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "HIT", rec2.Header().Get("X-Cache"))

	var envelope LineageEnvelope
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &envelope))
	assert.True(t, envelope.Cached)
}

func TestHandleLineage_UnknownNodeReturns404(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dag/model.proj.missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleInvalidate_EvictsCachedEntries(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	invalidateRec := httptest.NewRecorder()
	s.Routes().ServeHTTP(invalidateRec, httptest.NewRequest(http.MethodPost, "/dag/model.proj.a?action=invalidate", nil))
	require.Equal(t, http.StatusOK, invalidateRec.Code)

	var resp InvalidateResponse
	require.NoError(t, json.Unmarshal(invalidateRec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.InvalidatedCount)

	rec2 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "MISS", rec2.Header().Get("X-Cache"))
}

func TestHandleErrors_ReturnsReportForKnownNode(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/errors/model.proj.a", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope ErrorsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	assert.Equal(t, "model.proj.a", envelope.Data.NodeID)
}

func TestHandleErrors_UnknownNodeReturns404(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/errors/model.proj.missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCacheStats_ReflectsActivity(t *testing.T) {
	s, _ := testServer(t)
	s.Routes().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Cache.EntryCount, 1)
}

func TestHandleCacheClear_ClearAll(t *testing.T) {
	s, _ := testServer(t)
	s.Routes().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dag/model.proj.a", nil))

	body, err := json.Marshal(CacheClearRequest{Action: "clear-all"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/clear", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CacheClearResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "clear-all", resp.Action)
}

func TestHandleCacheClear_UnknownActionReturns400(t *testing.T) {
	s, _ := testServer(t)
	body, err := json.Marshal(CacheClearRequest{Action: "bogus"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/clear", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSnapshots_EmptyWhenNoIndex(t *testing.T) {
	s, _ := testServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshots", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SnapshotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Labels)
}
