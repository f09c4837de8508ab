// Package freshness implements the "last_updated" priority chain shared by
// the Lineage Engine's output enrichment and the Broad-Checks Evaluator's
// freshness check, so the two components never disagree about which
// source won.
package freshness

import (
	"time"

	"obs-engine/internal/artifact"
)

const (
	SourceSourcesArtifact         = "sources-artifact"
	SourceCatalogStats            = "catalog-stats"
	SourceManifestMeta            = "manifest-meta"
	SourceManifestCreatedAtLegacy = "manifest-created-at-legacy"
	SourceUnknown                 = "unknown"
)

// legacyMaxSeconds bounds the "seconds-ago" interpretation of a manifest's
// created_at field to roughly 50 years; outside that range the value is
// not a plausible seconds-ago timestamp.
const legacyMaxSeconds = 50 * 365 * 24 * 3600

// Resolve selects last_updated from the first available source, in the
// order: sources-freshness record, catalog stats/metadata, manifest meta,
// legacy numeric created_at. ok is false when no source yields a value.
func Resolve(asset *artifact.Asset, catalogRec *artifact.CatalogRecord, sourcesRec *artifact.FreshnessRecord, now time.Time) (lastUpdated, source string, ok bool) {
	if sourcesRec != nil {
		if sourcesRec.MaxLoadedAt != "" {
			return sourcesRec.MaxLoadedAt, SourceSourcesArtifact, true
		}
		if sourcesRec.SnapshottedAt != "" {
			return sourcesRec.SnapshottedAt, SourceSourcesArtifact, true
		}
	}

	if catalogRec != nil {
		for _, key := range []string{"max_loaded_at", "last_modified", "updated_at"} {
			if sv, found := catalogRec.Stat(key); found {
				if s, isStr := sv.String(); isStr && s != "" {
					return s, SourceCatalogStats, true
				}
			}
		}
		if catalogRec.UpdatedAt != "" {
			return catalogRec.UpdatedAt, SourceCatalogStats, true
		}
	}

	if asset != nil {
		for _, key := range []string{"last_updated_at", "max_loaded_at", "modified_at", "updated_at"} {
			if v, found := asset.Meta[key]; found {
				if s, isStr := v.(string); isStr && s != "" {
					return s, SourceManifestMeta, true
				}
			}
		}
		if asset.CreatedAtRaw != nil {
			v := *asset.CreatedAtRaw
			if v > 0 && v < legacyMaxSeconds {
				ts := now.Add(-time.Duration(v) * time.Second)
				return ts.UTC().Format(time.RFC3339), SourceManifestCreatedAtLegacy, true
			}
		}
	}

	return "", SourceUnknown, false
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// LagMinutes parses lastUpdated and returns max(0, round((now - t) / 60)).
func LagMinutes(lastUpdated string, now time.Time) (int, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, lastUpdated); err == nil {
			minutes := int(now.Sub(t).Minutes() + 0.5)
			if minutes < 0 {
				minutes = 0
			}
			return minutes, true
		}
	}
	return 0, false
}
