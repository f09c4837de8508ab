// Package artifact defines the dbt-shaped manifest/catalog data model and
// the pure parsing/merging logic that turns on-disk JSON into a Bundle. It
// has no process-wide state; internal/store owns memoization, locking, and
// revalidation on top of it.
package artifact

import (
	"sort"
	"strconv"
)

// Kind classifies an Asset by its dbt resource_type.
type Kind string

const (
	KindModel    Kind = "model"
	KindSeed     Kind = "seed"
	KindTest     Kind = "test"
	KindSource   Kind = "source"
	KindSnapshot Kind = "snapshot"
	KindMacro    Kind = "macro"
	KindExposure Kind = "exposure"
	KindOther    Kind = "other"
)

func normalizeKind(resourceType string) Kind {
	switch Kind(resourceType) {
	case KindModel, KindSeed, KindTest, KindSource, KindSnapshot, KindMacro, KindExposure:
		return Kind(resourceType)
	default:
		return KindOther
	}
}

// Column is a manifest-declared column: a name's declared data type plus
// free-form description.
type Column struct {
	DataType    string
	Description string
}

// TestMetadata carries the generic-test attributes dbt attaches to test
// nodes: the macro namespace, the generic test name, and its kwargs.
type TestMetadata struct {
	Namespace  string
	Name       string
	ColumnName string
	Kwargs     map[string]interface{}
}

// Asset is one entity with a distinct unique_id drawn from the manifest's
// nodes, sources, macros, or exposures collections.
type Asset struct {
	UniqueID     string
	Name         string
	Kind         Kind
	Database     string
	Schema       string
	Description  string
	Tags         []string
	Columns      map[string]Column
	Meta         map[string]interface{}
	Config       map[string]interface{}
	Materialized string
	Severity     string
	// DependsOn is nodes ∪ macros from depends_on, in manifest order,
	// possibly with duplicates — dedupe on use via UniqueDependsOn.
	DependsOn    []string
	TestMetadata *TestMetadata
	FileKeyName  string
	// CreatedAtRaw is the raw numeric created_at field when present and
	// numeric; nil otherwise. Interpreting it as a legacy "seconds ago"
	// timestamp is done by freshness.Resolve (internal/freshness), not by
	// this package.
	CreatedAtRaw *float64
}

// UniqueDependsOn returns Asset.DependsOn with duplicates removed,
// preserving first-occurrence order.
func (a *Asset) UniqueDependsOn() []string {
	seen := make(map[string]struct{}, len(a.DependsOn))
	out := make([]string, 0, len(a.DependsOn))
	for _, id := range a.DependsOn {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// HasTag reports whether the asset carries the given tag (case-sensitive,
// matching dbt's own tag comparisons).
func (a *Asset) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MetaBool reads a boolean flag from Meta, defaulting to false.
func (a *Asset) MetaBool(key string) bool {
	if a.Meta == nil {
		return false
	}
	v, ok := a.Meta[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// MetaString reads a string value from Meta, defaulting to "".
func (a *Asset) MetaString(key string) string {
	if a.Meta == nil {
		return ""
	}
	v, ok := a.Meta[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// CatalogColumn is the catalog's physical description of one column.
type CatalogColumn struct {
	Type     string
	Index    int
	Nullable *bool
	Comment  string
}

// StatValue represents one catalog statistic, which may be encoded either
// as a bare primitive or as an object wrapping it under "value".
type StatValue struct {
	raw interface{}
}

// NewStatValue wraps a raw decoded JSON value as a StatValue (used by tests).
func NewStatValue(raw interface{}) StatValue { return StatValue{raw: raw} }

// IsZero reports whether the stat carries no value at all.
func (s StatValue) IsZero() bool { return s.raw == nil }

// Float attempts to interpret the stat as a float64, accepting numeric
// strings as well as JSON numbers.
func (s StatValue) Float() (float64, bool) {
	switch v := s.raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String attempts to interpret the stat as a string.
func (s StatValue) String() (string, bool) {
	switch v := s.raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// CatalogRecord is the physical counterpart of an Asset.
type CatalogRecord struct {
	UniqueID  string
	TypeName  string
	Owner     string
	Comment   string
	Columns   map[string]CatalogColumn
	Stats     map[string]StatValue
	UpdatedAt string // metadata.updated_at, when the catalog carries it
}

// Stat looks up a named statistic, tolerating the absence of the catalog
// record itself.
func (c *CatalogRecord) Stat(name string) (StatValue, bool) {
	if c == nil || c.Stats == nil {
		return StatValue{}, false
	}
	v, ok := c.Stats[name]
	return v, ok
}

// Bundle is the in-memory combination of a manifest and its catalog: the
// merged asset map, the catalog map, and the derived Child Index.
type Bundle struct {
	DbtVersion   string
	GeneratedAt  string
	NodeCount    int
	SourceCount  int
	MacroCount   int
	Assets       map[string]*Asset
	Catalog      map[string]*CatalogRecord
	ChildIndex   map[string][]string
	// Warnings carries advisory structural-validation findings; they
	// never fail a load.
	Warnings []string
}

// Signature returns the string used to detect whether a re-validation is
// needed: "{dbt_version}:{generated_at}:{|nodes|}:{|sources|}:{|macros|}".
func (b *Bundle) Signature() string {
	return b.DbtVersion + ":" + b.GeneratedAt + ":" +
		strconv.Itoa(b.NodeCount) + ":" + strconv.Itoa(b.SourceCount) + ":" + strconv.Itoa(b.MacroCount)
}

// Asset looks up a merged asset by id, returning ok=false if absent from
// the union of nodes, sources, macros, and exposures.
func (b *Bundle) Asset(id string) (*Asset, bool) {
	a, ok := b.Assets[id]
	return a, ok
}

// Children returns the direct children of id in deterministic (sorted)
// order, or an empty slice if id has none.
func (b *Bundle) Children(id string) []string {
	children := append([]string(nil), b.ChildIndex[id]...)
	sort.Strings(children)
	return children
}
