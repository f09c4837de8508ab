// Package lineage implements bounded bidirectional
// dependency traversal with shortest-path depth recording, followed by
// catalog-derived output enrichment. Traversal is an iterative, explicit-
// queue BFS rather than native recursion, the same non-recursive style as
// internal/artifact.detectCycles, chosen so a pathologically deep or
// cyclic graph cannot exhaust the call stack.
package lineage

import (
	"sort"
	"time"

	"obs-engine/internal/artifact"
	"obs-engine/internal/freshness"
	"obs-engine/internal/obserr"
	"obs-engine/internal/reference"
)

const (
	minDepth = 0
	maxDepth = 100
)

// EnrichedColumn is the merged manifest/catalog view of one column.
type EnrichedColumn struct {
	DataType    string
	Description string
	FromCatalog bool
}

// EnrichedAsset is an Asset plus the catalog-derived fields added to
// every node placed in a LineageView.
type EnrichedAsset struct {
	UniqueID        string
	Name            string
	Kind            artifact.Kind
	Database        string
	Schema          string
	Description     string
	Tags            []string
	Columns         map[string]EnrichedColumn
	Meta            map[string]interface{}
	Materialized    string
	RowCount        *float64
	LastUpdated     string
	FreshnessSource string
	IsReference     bool
	ReferenceReason reference.Reason
	Children        []string
}

// DepthBlock is the {upstream, downstream} depth maxima pair.
type DepthBlock struct {
	Upstream   int
	Downstream int
}

// View is the computed lineage result for one root id.
type View struct {
	Root         *EnrichedAsset
	Ancestors    []*EnrichedAsset
	Descendants  []*EnrichedAsset
	ParentDepth  map[string]int
	ChildDepth   map[string]int
	Depth        DepthBlock
}

// ClampDepth clamps a requested max depth into [0, 100].
func ClampDepth(requested int) int {
	if requested < minDepth {
		return minDepth
	}
	if requested > maxDepth {
		return maxDepth
	}
	return requested
}

type frame struct {
	id    string
	depth int
}

// traverse runs a bounded BFS from rootID and records each reached node's
// shortest depth. Every edge has unit weight, so a node's depth is final
// the first time it's enqueued: marking it visited at enqueue time (not
// dequeue time) is what guarantees the FIFO queue never needs to revisit
// a node once a shorter path is found. edgesFor returns the outgoing
// edges for the traversal direction (depends_on for upstream, Child Index
// for downstream).
func traverse(bundle *artifact.Bundle, rootID string, limit int, edgesFor func(id string) []string) map[string]int {
	depth := make(map[string]int)
	visited := map[string]bool{rootID: true}
	queue := []frame{{id: rootID, depth: 0}}

	for len(queue) > 0 {
		top := queue[0]
		queue = queue[1:]

		if top.depth >= limit {
			continue
		}

		for _, next := range edgesFor(top.id) {
			if visited[next] {
				continue
			}
			if _, ok := bundle.Assets[next]; !ok {
				continue // dangling reference, never traversed
			}
			visited[next] = true
			depth[next] = top.depth + 1
			queue = append(queue, frame{id: next, depth: depth[next]})
		}
	}

	return depth
}

func dependsOnEdges(bundle *artifact.Bundle) func(string) []string {
	return func(id string) []string {
		a, ok := bundle.Assets[id]
		if !ok {
			return nil
		}
		return a.UniqueDependsOn()
	}
}

func childEdges(bundle *artifact.Bundle) func(string) []string {
	return func(id string) []string {
		return bundle.ChildIndex[id]
	}
}

// ComputeDAG computes the bounded bidirectional lineage view for rootID.
func ComputeDAG(bundle *artifact.Bundle, rootID string, requestedMaxDepth int, now time.Time) (*View, error) {
	root, ok := bundle.Asset(rootID)
	if !ok {
		return nil, obserr.ErrNotFound("node not found: %s", rootID)
	}
	limit := ClampDepth(requestedMaxDepth)

	parentDepth := traverse(bundle, rootID, limit, dependsOnEdges(bundle))
	childDepth := traverse(bundle, rootID, limit, childEdges(bundle))

	ancestorIDs := sortedKeys(parentDepth)
	descendantIDs := sortedKeys(childDepth)

	view := &View{
		Root:        enrich(bundle, root, now),
		ParentDepth: parentDepth,
		ChildDepth:  childDepth,
		Depth:       DepthBlock{Upstream: maxValue(parentDepth), Downstream: maxValue(childDepth)},
	}
	for _, id := range ancestorIDs {
		if a, ok := bundle.Asset(id); ok {
			view.Ancestors = append(view.Ancestors, enrich(bundle, a, now))
		}
	}
	for _, id := range descendantIDs {
		if a, ok := bundle.Asset(id); ok {
			view.Descendants = append(view.Descendants, enrich(bundle, a, now))
		}
	}
	return view, nil
}

func enrich(bundle *artifact.Bundle, asset *artifact.Asset, now time.Time) *EnrichedAsset {
	catalogRec := bundle.Catalog[asset.UniqueID]

	columns := make(map[string]EnrichedColumn, len(asset.Columns))
	for name, col := range asset.Columns {
		columns[name] = EnrichedColumn{DataType: col.DataType, Description: col.Description}
	}
	if catalogRec != nil {
		for name, col := range catalogRec.Columns {
			existing := columns[name]
			existing.DataType = col.Type
			if existing.Description == "" {
				existing.Description = col.Comment
			}
			existing.FromCatalog = true
			columns[name] = existing
		}
	}

	var rowCount *float64
	if catalogRec != nil {
		for _, key := range []string{"num_rows", "row_count"} {
			if sv, ok := catalogRec.Stat(key); ok {
				if f, ok := sv.Float(); ok {
					rowCount = &f
					break
				}
			}
		}
	}

	lastUpdated, source, _ := freshness.Resolve(asset, catalogRec, nil, now)
	classification := reference.Classify(asset)

	return &EnrichedAsset{
		UniqueID:        asset.UniqueID,
		Name:            asset.Name,
		Kind:            asset.Kind,
		Database:        asset.Database,
		Schema:          asset.Schema,
		Description:     asset.Description,
		Tags:            asset.Tags,
		Columns:         columns,
		Meta:            asset.Meta,
		Materialized:    asset.Materialized,
		RowCount:        rowCount,
		LastUpdated:     lastUpdated,
		FreshnessSource: source,
		IsReference:     classification.IsReference,
		ReferenceReason: classification.Reason,
		Children:        bundle.Children(asset.UniqueID),
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func maxValue(m map[string]int) int {
	max := 0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}
