package artifact

import "encoding/json"

// BuildBundle merges a manifest and an optional catalog into a Bundle,
// constructing the merged asset view (nodes, sources, macros, and
// exposures in one canonical union) and the Child Index in one pass.
// catalog may be nil when no catalog was found.
func BuildBundle(manifest *ManifestDoc, catalog *CatalogDoc) *Bundle {
	b := &Bundle{
		DbtVersion:  manifest.Metadata.DbtVersion,
		GeneratedAt: manifest.Metadata.GeneratedAt,
		NodeCount:   len(manifest.Nodes),
		SourceCount: len(manifest.Sources),
		MacroCount:  len(manifest.Macros),
		Assets:      make(map[string]*Asset),
		ChildIndex:  make(map[string][]string),
	}

	addAssets(b.Assets, manifest.Nodes)
	addAssets(b.Assets, manifest.Sources)
	addAssets(b.Assets, manifest.Macros)
	addAssets(b.Assets, manifest.Exposures)

	if catalog != nil {
		b.Catalog = make(map[string]*CatalogRecord, len(catalog.Nodes)+len(catalog.Sources))
		addCatalogRecords(b.Catalog, catalog.Nodes)
		addCatalogRecords(b.Catalog, catalog.Sources)
	}

	childSeen := make(map[string]map[string]struct{})
	for id, asset := range b.Assets {
		for _, parent := range asset.UniqueDependsOn() {
			seen, ok := childSeen[parent]
			if !ok {
				seen = make(map[string]struct{})
				childSeen[parent] = seen
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			b.ChildIndex[parent] = append(b.ChildIndex[parent], id)
		}
	}

	return b
}

func addAssets(into map[string]*Asset, raw map[string]rawNode) {
	for key, n := range raw {
		id := n.UniqueID
		if id == "" {
			id = key
		}
		into[id] = toAsset(id, n)
	}
}

func toAsset(id string, n rawNode) *Asset {
	a := &Asset{
		UniqueID:    id,
		Name:        n.Name,
		Kind:        normalizeKind(n.ResourceType),
		Database:    n.Database,
		Schema:      n.Schema,
		Description: n.Description,
		Tags:        append([]string(nil), n.Tags...),
		Meta:        n.Meta,
		FileKeyName: n.FileKeyName,
	}

	if len(n.Columns) > 0 {
		a.Columns = make(map[string]Column, len(n.Columns))
		for name, c := range n.Columns {
			a.Columns[name] = Column{DataType: c.DataType, Description: c.Description}
		}
	}

	a.DependsOn = make([]string, 0, len(n.DependsOn.Nodes)+len(n.DependsOn.Macros))
	a.DependsOn = append(a.DependsOn, n.DependsOn.Nodes...)
	a.DependsOn = append(a.DependsOn, n.DependsOn.Macros...)

	if len(n.Config) > 0 {
		var cfg rawConfig
		if err := json.Unmarshal(n.Config, &cfg); err == nil {
			a.Materialized = cfg.Materialized
			a.Severity = cfg.Severity
		}
		var cfgMap map[string]interface{}
		if err := json.Unmarshal(n.Config, &cfgMap); err == nil {
			a.Config = cfgMap
		}
	}

	if n.TestMetadata != nil {
		tm := &TestMetadata{
			Namespace: n.TestMetadata.Namespace,
			Name:      n.TestMetadata.Name,
			Kwargs:    n.TestMetadata.Kwargs,
		}
		if col, ok := n.TestMetadata.Kwargs["column_name"].(string); ok {
			tm.ColumnName = col
		}
		a.TestMetadata = tm
	}

	if len(n.CreatedAt) > 0 {
		var f float64
		if err := json.Unmarshal(n.CreatedAt, &f); err == nil {
			a.CreatedAtRaw = &f
		}
	}

	return a
}

func addCatalogRecords(into map[string]*CatalogRecord, raw map[string]rawCatalogEntry) {
	for key, e := range raw {
		id := key
		rec := &CatalogRecord{
			UniqueID:  id,
			TypeName:  e.Metadata.Type,
			Owner:     e.Metadata.Owner,
			Comment:   e.Metadata.Comment,
			UpdatedAt: e.Metadata.Updated,
			Stats:     e.Stats,
		}
		if len(e.Columns) > 0 {
			rec.Columns = make(map[string]CatalogColumn, len(e.Columns))
			for name, c := range e.Columns {
				rec.Columns[name] = CatalogColumn{Type: c.Type, Index: c.Index, Nullable: c.Nullable, Comment: c.Comment}
			}
		}
		into[id] = rec
	}
}
