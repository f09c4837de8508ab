package httpapi

import (
	"obs-engine/internal/checks"
	"obs-engine/internal/lineage"
	"obs-engine/internal/testreport"
)

// LineageNode is one node of a LineageView enriched with its broad-checks
// observability block.
type LineageNode struct {
	*lineage.EnrichedAsset
	Observability *checks.BroadChecks `json:"observability,omitempty"`
}

// LineageData is the `data` field of the /dag/{id} envelope.
type LineageData struct {
	Root        *LineageNode         `json:"root"`
	Ancestors   []*LineageNode       `json:"ancestors"`
	Descendants []*LineageNode       `json:"descendants"`
	ParentDepth map[string]int       `json:"parentDepth"`
	ChildDepth  map[string]int       `json:"childDepth"`
	Depth       lineage.DepthBlock   `json:"depth"`
}

// ComparisonMeta describes where the current/previous artifacts came from.
type ComparisonMeta struct {
	CurrentSource  string `json:"currentSource"`
	PreviousSource string `json:"previousSource"`
}

// LineageMetadata is the envelope's `metadata` field.
type LineageMetadata struct {
	ManifestVersion string         `json:"manifestVersion"`
	GeneratedAt     string         `json:"generatedAt"`
	CatalogVersion  string         `json:"catalogVersion"`
	Comparison      ComparisonMeta `json:"comparison"`
}

// LineageEnvelope is the full /dag/{id} response body.
type LineageEnvelope struct {
	Data          *LineageData    `json:"data"`
	Cached        bool            `json:"cached"`
	ComputeTimeMs int64           `json:"computeTimeMs"`
	NodeID        string          `json:"nodeId"`
	Metadata      LineageMetadata `json:"metadata"`
}

// InvalidateResponse is the POST /dag/{id}?action=invalidate response body.
type InvalidateResponse struct {
	Success          bool   `json:"success"`
	NodeID           string `json:"nodeId"`
	InvalidatedCount int    `json:"invalidatedCount"`
}

// ErrorsEnvelope is the full /errors/{id} response body.
type ErrorsEnvelope struct {
	Data          *testreport.Report `json:"data"`
	Cached        bool                `json:"cached"`
	ComputeTimeMs int64               `json:"computeTimeMs"`
}

// CacheStatsResponse is the GET /cache/stats response body.
type CacheStatsResponse struct {
	Timestamp   string           `json:"timestamp"`
	Cache       cacheSummary     `json:"cache"`
	Performance cachePerformance `json:"performance"`
	TTL         cacheTTL         `json:"ttl"`
}

type cacheSummary struct {
	EntryCount int            `json:"entryCount"`
	StatsCount int            `json:"statsCount"`
	ByLayer    map[string]int `json:"byLayer"`
}

type cachePerformance struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

type cacheTTL struct {
	HotSeconds  int64 `json:"hotSeconds"`
	WarmSeconds int64 `json:"warmSeconds"`
	ColdSeconds int64 `json:"coldSeconds"`
}

// CacheClearRequest is the POST /cache/clear request body.
type CacheClearRequest struct {
	Action string `json:"action"`
	Layer  string `json:"layer,omitempty"`
}

// CacheClearResponse is the POST /cache/clear response body.
type CacheClearResponse struct {
	Success           bool   `json:"success"`
	Action            string `json:"action"`
	TotalItemsCleared int    `json:"totalItemsCleared,omitempty"`
	ClearedAt         string `json:"clearedAt"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SnapshotsResponse is the GET /snapshots response body.
type SnapshotsResponse struct {
	Labels []SnapshotEntry `json:"labels"`
}

// SnapshotEntry describes one entry from the Snapshot Indexer.
type SnapshotEntry struct {
	Label       string `json:"label"`
	Valid       bool   `json:"valid"`
	GeneratedAt string `json:"generatedAt,omitempty"`
	NodeCount   int    `json:"nodeCount,omitempty"`
}
