// Package testreport implements the test aggregator: enumerating the
// test nodes attached to an asset, classifying each into
// freshness/volume/quality/other, and appending synthetic tests derived
// from the Broad-Checks Evaluator.
package testreport

import (
	"fmt"
	"strings"
	"time"

	"obs-engine/internal/artifact"
	"obs-engine/internal/checks"
)

// Type classifies a test's purpose.
type Type string

const (
	TypeFreshness Type = "freshness"
	TypeVolume    Type = "volume"
	TypeQuality   Type = "quality"
	TypeOther     Type = "other"
)

// expectedNamespace is the generic-test macro namespace dbt core tests use.
const expectedNamespace = "dbt"

// Result is one test's outcome, whether drawn from the manifest or
// synthesized from a broad check.
type Result struct {
	ID          string
	Name        string
	Type        Type
	Status      checks.Status
	Severity    string
	Description string
	ColumnName  string
}

// Comparison describes where the current/previous artifacts came from, for
// display in the report envelope.
type Comparison struct {
	CurrentSourceTag  string
	PreviousSourceTag string
}

// Report is the full tests_for(node_id) result.
type Report struct {
	NodeID       string
	TotalTests   int
	FailingTests int
	Tests        []Result
	Volume       checks.VolumeCheck
	BroadChecks  *checks.BroadChecks
	Comparison   Comparison
}

// Filter narrows the returned test list; empty fields mean "no filter".
type Filter struct {
	TestType Type
	Status   checks.Status
}

// Aggregate enumerates nodeID's tests from current's manifest, classifies
// them, appends the three broad-check synthetic tests, and applies filter.
// failingTests is counted before filtering.
func Aggregate(nodeID string, current, previous *artifact.Bundle, currentSources artifact.FreshnessMap, thresholds checks.Thresholds, now time.Time, comparison Comparison, filter Filter) *Report {
	bc := checks.Evaluate(nodeID, current, previous, currentSources, thresholds, now)

	tests := enumerateTests(current, nodeID)
	tests = append(tests, syntheticTests(bc)...)

	failing := 0
	for _, tst := range tests {
		if tst.Status == checks.StatusFail {
			failing++
		}
	}

	filtered := make([]Result, 0, len(tests))
	for _, tst := range tests {
		if filter.TestType != "" && tst.Type != filter.TestType {
			continue
		}
		if filter.Status != "" && tst.Status != filter.Status {
			continue
		}
		filtered = append(filtered, tst)
	}

	return &Report{
		NodeID:       nodeID,
		TotalTests:   len(tests),
		FailingTests: failing,
		Tests:        filtered,
		Volume:       bc.Volume,
		BroadChecks:  bc,
		Comparison:   comparison,
	}
}

func enumerateTests(current *artifact.Bundle, nodeID string) []Result {
	if current == nil {
		return nil
	}
	var out []Result
	for id, asset := range current.Assets {
		if asset.Kind != artifact.KindTest {
			continue
		}
		if !dependsOn(asset, nodeID) && asset.FileKeyName != nodeID {
			continue
		}
		out = append(out, toResult(id, asset))
	}
	return out
}

func dependsOn(asset *artifact.Asset, nodeID string) bool {
	for _, id := range asset.DependsOn {
		if id == nodeID {
			return true
		}
	}
	return false
}

func toResult(id string, asset *artifact.Asset) Result {
	name := asset.Name
	columnName := ""
	genericName := ""
	namespace := ""
	if asset.TestMetadata != nil {
		genericName = asset.TestMetadata.Name
		namespace = asset.TestMetadata.Namespace
		columnName = asset.TestMetadata.ColumnName
		if genericName != "" {
			name = genericName
		}
	}

	severity := strings.ToLower(asset.Severity)
	if severity != "error" && severity != "warning" {
		severity = "warning"
	}

	return Result{
		ID:          id,
		Name:        name,
		Type:        classify(namespace, genericName, asset.Name),
		Status:      checks.StatusUnknown,
		Severity:    severity,
		Description: asset.Description,
		ColumnName:  columnName,
	}
}

func classify(namespace, genericName, fallbackName string) Type {
	if namespace == expectedNamespace && genericName != "" {
		switch genericName {
		case "dbt_freshness", "freshness":
			return TypeFreshness
		case "unique", "not_null", "relationships", "accepted_values":
			return TypeQuality
		default:
			return TypeOther
		}
	}

	lower := strings.ToLower(fallbackName)
	switch {
	case strings.Contains(lower, "freshness"):
		return TypeFreshness
	case strings.Contains(lower, "row_count"), strings.Contains(lower, "volume"), strings.Contains(lower, "not_empty"):
		return TypeVolume
	case strings.Contains(lower, "not_null"), strings.Contains(lower, "unique"),
		strings.Contains(lower, "accepted_values"), strings.Contains(lower, "relationships"),
		strings.Contains(lower, "type_check"):
		return TypeQuality
	default:
		return TypeOther
	}
}

func syntheticTests(bc *checks.BroadChecks) []Result {
	return []Result{
		{
			ID:          "synthetic.schema_drift",
			Name:        "schema_drift",
			Type:        TypeQuality,
			Status:      bc.Schema.Status,
			Severity:    severityFor(bc.Schema.Status),
			Description: schemaDescription(bc.Schema),
		},
		{
			ID:          "synthetic.volume_change",
			Name:        "volume_change",
			Type:        TypeVolume,
			Status:      bc.Volume.Status,
			Severity:    severityFor(bc.Volume.Status),
			Description: volumeDescription(bc.Volume),
		},
		{
			ID:          "synthetic.freshness_lag",
			Name:        "freshness_lag",
			Type:        TypeFreshness,
			Status:      bc.Freshness.Status,
			Severity:    severityFor(bc.Freshness.Status),
			Description: freshnessDescription(bc.Freshness),
		},
	}
}

func severityFor(status checks.Status) string {
	if status == checks.StatusFail {
		return "error"
	}
	return "warning"
}

func schemaDescription(s checks.SchemaCheck) string {
	return fmt.Sprintf("%d added, %d removed, %d type changes", len(s.AddedColumns), len(s.RemovedColumns), len(s.TypeChanges))
}

func volumeDescription(v checks.VolumeCheck) string {
	if v.DeviationPct == nil {
		return "row count comparison unavailable"
	}
	return fmt.Sprintf("row count deviation %.1f%% (threshold %.1f%%)", *v.DeviationPct, v.ThresholdPct)
}

func freshnessDescription(f checks.FreshnessCheck) string {
	if f.LagMinutes == nil {
		return "no freshness timestamp available"
	}
	return fmt.Sprintf("last updated %d minutes ago (threshold %d)", *f.LagMinutes, f.ThresholdMinutes)
}
