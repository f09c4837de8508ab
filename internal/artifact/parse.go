package artifact

import (
	"encoding/json"
	"fmt"

	"obs-engine/internal/obserr"
)

// rawDependsOn mirrors the manifest's depends_on block.
type rawDependsOn struct {
	Nodes  []string `json:"nodes"`
	Macros []string `json:"macros"`
}

type rawColumn struct {
	Description string `json:"description"`
	DataType    string `json:"data_type"`
}

type rawTestMetadata struct {
	Name      string                 `json:"name"`
	Namespace string                 `json:"namespace"`
	Kwargs    map[string]interface{} `json:"kwargs"`
}

type rawConfig struct {
	Materialized string `json:"materialized"`
	Severity     string `json:"severity"`
}

type rawNode struct {
	UniqueID     string                 `json:"unique_id"`
	Name         string                 `json:"name"`
	ResourceType string                 `json:"resource_type"`
	Database     string                 `json:"database"`
	Schema       string                 `json:"schema"`
	Description  string                 `json:"description"`
	Tags         []string               `json:"tags"`
	Columns      map[string]rawColumn   `json:"columns"`
	Meta         map[string]interface{} `json:"meta"`
	Config       json.RawMessage        `json:"config"`
	DependsOn    rawDependsOn           `json:"depends_on"`
	TestMetadata *rawTestMetadata       `json:"test_metadata"`
	FileKeyName  string                 `json:"file_key_name"`
	CreatedAt    json.RawMessage        `json:"created_at"`
}

// rawManifestMetadata holds the manifest's top-level metadata block.
type rawManifestMetadata struct {
	DbtSchemaVersion string `json:"dbt_schema_version"`
	DbtVersion       string `json:"dbt_version"`
	GeneratedAt      string `json:"generated_at"`
}

// ManifestDoc is the parsed shape of manifest.json, kept close to the wire
// format so BuildBundle can decide how to merge it.
type ManifestDoc struct {
	Metadata  rawManifestMetadata `json:"metadata"`
	Nodes     map[string]rawNode  `json:"nodes"`
	Sources   map[string]rawNode  `json:"sources"`
	Macros    map[string]rawNode  `json:"macros"`
	Exposures map[string]rawNode  `json:"exposures"`
}

// ParseManifest decodes manifest.json bytes. A JSON decode error is
// surfaced as obserr.ArtifactLoadError; a missing metadata or nodes section
// is not an error here (Validate reports it as an advisory warning).
func ParseManifest(data []byte) (*ManifestDoc, error) {
	var doc ManifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, obserr.ErrArtifactLoad("parse manifest: %v", err)
	}
	return &doc, nil
}

type rawCatalogMetadata struct {
	Schema  string `json:"schema"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Owner   string `json:"owner"`
	Comment string `json:"comment"`
	Updated string `json:"updated_at"`
}

type rawCatalogColumn struct {
	Type     string `json:"type"`
	Index    int    `json:"index"`
	Comment  string `json:"comment"`
	Nullable *bool  `json:"nullable"`
}

type rawCatalogEntry struct {
	Metadata rawCatalogMetadata          `json:"metadata"`
	Columns  map[string]rawCatalogColumn `json:"columns"`
	Stats    map[string]StatValue        `json:"stats"`
}

// CatalogDoc is the parsed shape of catalog.json.
type CatalogDoc struct {
	Nodes   map[string]rawCatalogEntry `json:"nodes"`
	Sources map[string]rawCatalogEntry `json:"sources"`
}

// ParseCatalog decodes catalog.json bytes.
func ParseCatalog(data []byte) (*CatalogDoc, error) {
	var doc CatalogDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, obserr.ErrArtifactLoad("parse catalog: %v", err)
	}
	return &doc, nil
}

// UnmarshalJSON implements json.Unmarshaler for StatValue, unwrapping a
// {"value": ...} object to the wrapped primitive and leaving bare
// primitives untouched.
func (s *StatValue) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if m, ok := v.(map[string]interface{}); ok {
		if inner, present := m["value"]; present {
			s.raw = inner
			return nil
		}
	}
	s.raw = v
	return nil
}

// FreshnessRecord is one entry from a sources-freshness artifact.
type FreshnessRecord struct {
	MaxLoadedAt   string
	SnapshottedAt string
}

// FreshnessMap maps a source's unique_id to its freshness record.
type FreshnessMap map[string]FreshnessRecord

type rawSourcesDoc struct {
	Results []struct {
		UniqueID      string `json:"unique_id"`
		MaxLoadedAt   string `json:"max_loaded_at"`
		SnapshottedAt string `json:"snapshotted_at"`
	} `json:"results"`
}

// ParseSourcesFreshness decodes a sources.json freshness artifact.
func ParseSourcesFreshness(data []byte) (FreshnessMap, error) {
	var doc rawSourcesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sources freshness: %w", err)
	}
	out := make(FreshnessMap, len(doc.Results))
	for _, r := range doc.Results {
		out[r.UniqueID] = FreshnessRecord{MaxLoadedAt: r.MaxLoadedAt, SnapshottedAt: r.SnapshottedAt}
	}
	return out, nil
}

// SnapshotSummary is the parsed shape of a snapshot directory's
// summary.json sidecar.
type SnapshotSummary struct {
	Label       string `json:"label"`
	GeneratedAt string `json:"generated_at"`
	NodeCount   int    `json:"node_count"`
}

// ParseSnapshotSummary decodes a summary.json sidecar.
func ParseSnapshotSummary(data []byte) (*SnapshotSummary, error) {
	var s SnapshotSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot summary: %w", err)
	}
	return &s, nil
}
