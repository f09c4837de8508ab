// Package snapshot implements the snapshot indexer: reading the
// operator-curated index.json label list, validating each labeled
// directory, and surfacing per-label summaries for the /snapshots endpoint
// and for the Comparison Resolver's "lexicographically-last" fallback.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"

	"obs-engine/internal/artifact"
	"obs-engine/internal/obserr"
)

// Entry is one labeled snapshot directory.
type Entry struct {
	Label   string
	Dir     string
	Valid   bool
	Summary *artifact.SnapshotSummary
}

// Index reads snapshotsDir/index.json (relative to workDir) and validates
// each listed label's directory has at least manifest.json and
// catalog.json. Labels absent from index.json are never candidates for
// comparison fallback: the index, not a directory scan, is authoritative.
func Index(workDir, snapshotsDir string) ([]Entry, error) {
	root := filepath.Join(workDir, snapshotsDir)
	indexPath := filepath.Join(root, "index.json")

	data, err := os.ReadFile(indexPath) //nolint:gosec // operator-controlled path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, obserr.ErrArtifactLoad("read snapshot index %s: %v", indexPath, err)
	}

	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, obserr.ErrArtifactLoad("parse snapshot index %s: %v", indexPath, err)
	}

	entries := make([]Entry, 0, len(labels))
	for _, label := range labels {
		dir := filepath.Join(root, label)
		entry := Entry{Label: label, Dir: dir}
		entry.Valid = hasFile(dir, "manifest.json") && hasFile(dir, "catalog.json")
		if entry.Valid {
			if summary, err := artifact.LoadSnapshotSummaryFile(filepath.Join(dir, "summary.json")); err == nil {
				entry.Summary = summary
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
