package artifact

import (
	"os"

	"obs-engine/internal/obserr"
)

// LoadManifestFile reads and parses manifest.json at path.
func LoadManifestFile(path string) (*ManifestDoc, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, obserr.ErrArtifactLoad("manifest not found: %s", path)
		}
		return nil, obserr.ErrArtifactLoad("read manifest %s: %v", path, err)
	}
	return ParseManifest(data)
}

// LoadCatalogFile reads and parses catalog.json at path. A missing file is
// not an error: callers treat a nil, nil return as "catalog = none".
func LoadCatalogFile(path string) (*CatalogDoc, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, obserr.ErrArtifactLoad("read catalog %s: %v", path, err)
	}
	return ParseCatalog(data)
}

// LoadSourcesFile reads and parses a sources-freshness artifact at path. A
// missing file is silently absent.
func LoadSourcesFile(path string) (FreshnessMap, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseSourcesFreshness(data)
}

// LoadSnapshotSummaryFile reads and parses a snapshot's summary.json
// sidecar. A missing file returns (nil, nil).
func LoadSnapshotSummaryFile(path string) (*SnapshotSummary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseSnapshotSummary(data)
}

// LoadBundle reads manifest.json and catalog.json from dir and merges them
// into a Bundle via BuildBundle.
func LoadBundle(dir string) (*Bundle, error) {
	manifest, err := LoadManifestFile(joinPath(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	catalog, err := LoadCatalogFile(joinPath(dir, "catalog.json"))
	if err != nil {
		return nil, err
	}
	b := BuildBundle(manifest, catalog)
	b.Warnings = Validate(b)
	return b, nil
}

func joinPath(dir, file string) string {
	if dir == "" || dir == "." {
		return file
	}
	if dir[len(dir)-1] == '/' {
		return dir + file
	}
	return dir + "/" + file
}
