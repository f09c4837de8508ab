// Package checks implements the broad-checks evaluator: schema,
// volume, and freshness drift between a current and previous artifact
// pair, plus the derived style_key used by the UI for color selection.
package checks

import (
	"math"
	"sort"
	"strings"
	"time"

	"obs-engine/internal/artifact"
	"obs-engine/internal/freshness"
	"obs-engine/internal/reference"
)

// Status is the three-valued outcome of a broad check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// TypeChange records one column whose declared/actual type differs between
// the previous and current artifact pair.
type TypeChange struct {
	Column   string
	Previous string
	Current  string
}

type SchemaCheck struct {
	Status         Status
	AddedColumns   []string
	RemovedColumns []string
	TypeChanges    []TypeChange
}

type VolumeCheck struct {
	Status            Status
	CurrentRowCount   *float64
	PreviousRowCount  *float64
	DeviationPct      *float64
	ThresholdPct      float64
}

type FreshnessCheck struct {
	Status           Status
	LastUpdated      string
	LagMinutes       *int
	ThresholdMinutes int
	IsReferenceLike  bool
	FreshnessSource  string
}

// BroadChecks is the full result for one node, one comparison pair.
type BroadChecks struct {
	Schema    SchemaCheck
	Volume    VolumeCheck
	Freshness FreshnessCheck
	StyleKey  string
	FailCount int
}

// Thresholds carries the operator-configurable limits from internal/config.
type Thresholds struct {
	VolumeThresholdPct                 float64
	FreshnessThresholdMinutes          int
	ReferenceFreshnessThresholdMinutes int
}

// Evaluate computes schema, volume, and freshness checks for nodeID
// between the current and previous bundles. Either bundle, or the node's
// presence in it, may be nil/absent: every check degrades to "unknown"
// gracefully rather than erroring, since a missing baseline is an expected
// state.
func Evaluate(nodeID string, current, previous *artifact.Bundle, currentSources artifact.FreshnessMap, thresholds Thresholds, now time.Time) *BroadChecks {
	var currentAsset *artifact.Asset
	if current != nil {
		currentAsset, _ = current.Asset(nodeID)
	}

	result := &BroadChecks{
		Schema:    schemaCheck(current, previous, nodeID),
		Volume:    volumeCheck(current, previous, nodeID, thresholds.VolumeThresholdPct),
		Freshness: freshnessCheck(currentAsset, current, currentSources, nodeID, thresholds, now),
	}

	result.StyleKey, result.FailCount = styleKey(result)
	return result
}

func mergedColumnTypes(bundle *artifact.Bundle, nodeID string) map[string]string {
	out := map[string]string{}
	if bundle == nil {
		return out
	}
	if asset, ok := bundle.Asset(nodeID); ok {
		for name, col := range asset.Columns {
			out[name] = col.DataType
		}
	}
	if rec, ok := bundle.Catalog[nodeID]; ok {
		for name, col := range rec.Columns {
			out[name] = col.Type // catalog wins
		}
	}
	return out
}

func schemaCheck(current, previous *artifact.Bundle, nodeID string) SchemaCheck {
	curCols := mergedColumnTypes(current, nodeID)
	prevCols := mergedColumnTypes(previous, nodeID)

	if len(prevCols) == 0 {
		return SchemaCheck{Status: StatusUnknown}
	}

	var added, removed []string
	var changes []TypeChange

	for name, curType := range curCols {
		prevType, existed := prevCols[name]
		if !existed {
			added = append(added, name)
			continue
		}
		if prevType != curType {
			changes = append(changes, TypeChange{Column: name, Previous: prevType, Current: curType})
		}
	}
	for name := range prevCols {
		if _, stillPresent := curCols[name]; !stillPresent {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Column < changes[j].Column })

	status := StatusPass
	if len(added) > 0 || len(removed) > 0 || len(changes) > 0 {
		status = StatusFail
	}
	return SchemaCheck{Status: status, AddedColumns: added, RemovedColumns: removed, TypeChanges: changes}
}

func rowCount(bundle *artifact.Bundle, nodeID string) *float64 {
	if bundle == nil {
		return nil
	}
	rec, ok := bundle.Catalog[nodeID]
	if !ok {
		return nil
	}
	for _, key := range []string{"num_rows", "row_count"} {
		if sv, ok := rec.Stat(key); ok {
			if f, ok := sv.Float(); ok {
				v := f
				return &v
			}
		}
	}
	return nil
}

func volumeCheck(current, previous *artifact.Bundle, nodeID string, thresholdPct float64) VolumeCheck {
	cur := rowCount(current, nodeID)
	prev := rowCount(previous, nodeID)
	v := VolumeCheck{Status: StatusUnknown, CurrentRowCount: cur, PreviousRowCount: prev, ThresholdPct: thresholdPct}

	if cur == nil || prev == nil || *prev <= 0 {
		return v
	}

	deviation := (*cur - *prev) / *prev * 100
	v.DeviationPct = &deviation
	if math.Abs(deviation) > thresholdPct {
		v.Status = StatusFail
	} else {
		v.Status = StatusPass
	}
	return v
}

func freshnessCheck(asset *artifact.Asset, bundle *artifact.Bundle, sources artifact.FreshnessMap, nodeID string, thresholds Thresholds, now time.Time) FreshnessCheck {
	var catalogRec *artifact.CatalogRecord
	if bundle != nil {
		catalogRec = bundle.Catalog[nodeID]
	}
	var sourcesRec *artifact.FreshnessRecord
	if rec, ok := sources[nodeID]; ok {
		sourcesRec = &rec
	}

	isReference := false
	if asset != nil {
		isReference = reference.Classify(asset).IsReference
	}
	threshold := thresholds.FreshnessThresholdMinutes
	if isReference {
		threshold = thresholds.ReferenceFreshnessThresholdMinutes
	}

	lastUpdated, source, ok := freshness.Resolve(asset, catalogRec, sourcesRec, now)
	check := FreshnessCheck{ThresholdMinutes: threshold, IsReferenceLike: isReference, FreshnessSource: source}
	if !ok {
		check.Status = StatusUnknown
		return check
	}
	check.LastUpdated = lastUpdated

	lag, parsed := freshness.LagMinutes(lastUpdated, now)
	if !parsed {
		check.Status = StatusUnknown
		return check
	}
	check.LagMinutes = &lag
	if lag > threshold {
		check.Status = StatusFail
	} else {
		check.Status = StatusPass
	}
	return check
}

// styleKey joins the names of failing checks in the fixed order
// schema, volume, freshness, defaulting to "none".
func styleKey(b *BroadChecks) (string, int) {
	var failing []string
	if b.Schema.Status == StatusFail {
		failing = append(failing, "schema")
	}
	if b.Volume.Status == StatusFail {
		failing = append(failing, "volume")
	}
	if b.Freshness.Status == StatusFail {
		failing = append(failing, "freshness")
	}
	if len(failing) == 0 {
		return "none", 0
	}
	return strings.Join(failing, "+"), len(failing)
}
