// Package reference implements the reference classifier: a pure
// function deciding whether an asset is slow-changing reference data, used
// by freshness thresholding and UI hints.
package reference

import (
	"strings"

	"obs-engine/internal/artifact"
)

// Reason names which rule matched — "not_reference" when none did.
type Reason string

const (
	ReasonMetaReferenceTable Reason = "meta.reference_table"
	ReasonMetaDataClass      Reason = "meta.data_class=reference"
	ReasonTag                Reason = "tag"
	ReasonSeed               Reason = "seed"
	ReasonHardcodedName      Reason = "hardcoded_table_name"
	ReasonNamePattern        Reason = "name_pattern"
	ReasonKeyValueColumns    Reason = "key_value_columns"
	ReasonNotReference       Reason = "not_reference"
)

// Classification is the result of Classify.
type Classification struct {
	IsReference bool
	Reason      Reason
}

var referenceTags = map[string]struct{}{
	"ref":       {},
	"reference": {},
	"lookup":    {},
	"static":    {},
	"dimension": {},
}

// hardcodedReferenceNames is a fixed allowlist of well-known slow-changing
// reference entities, lower-cased for comparison.
var hardcodedReferenceNames = map[string]struct{}{
	"dim_date":         {},
	"dim_calendar":     {},
	"country_codes":    {},
	"currency_codes":   {},
	"timezone_lookup":  {},
	"state_lookup":     {},
	"zip_code_lookup":  {},
	"product_category": {},
	"status_codes":     {},
}

// keyValueColumnPairs are canonical (key, value) column-name pairs that
// identify a lookup/dimension table by shape alone.
var keyValueColumnPairs = [][2]string{
	{"id", "name"},
	{"id", "description"},
	{"code", "name"},
	{"code", "description"},
	{"key", "value"},
	{"type", "description"},
	{"status", "description"},
}

// Classify decides whether asset is reference-like. It tries each rule in
// a fixed decision order and returns on the first match.
func Classify(asset *artifact.Asset) Classification {
	if asset.MetaBool("reference_table") {
		return Classification{true, ReasonMetaReferenceTable}
	}
	if strings.EqualFold(asset.MetaString("data_class"), "reference") {
		return Classification{true, ReasonMetaDataClass}
	}
	for _, tag := range asset.Tags {
		if _, ok := referenceTags[strings.ToLower(tag)]; ok {
			return Classification{true, ReasonTag}
		}
	}
	if asset.Kind == artifact.KindSeed || strings.EqualFold(asset.Materialized, "seed") {
		return Classification{true, ReasonSeed}
	}
	if _, ok := hardcodedReferenceNames[strings.ToLower(asset.Name)]; ok {
		return Classification{true, ReasonHardcodedName}
	}
	lowerName := strings.ToLower(asset.Name)
	for _, pattern := range []string{"lookup", "reference", "_type", "_reason"} {
		if strings.Contains(lowerName, pattern) {
			return Classification{true, ReasonNamePattern}
		}
	}
	if hasKeyValueColumnShape(asset) {
		return Classification{true, ReasonKeyValueColumns}
	}
	return Classification{false, ReasonNotReference}
}

func hasKeyValueColumnShape(asset *artifact.Asset) bool {
	if len(asset.Columns) == 0 {
		return false
	}
	lower := make(map[string]struct{}, len(asset.Columns))
	for name := range asset.Columns {
		lower[strings.ToLower(name)] = struct{}{}
	}
	for _, pair := range keyValueColumnPairs {
		_, hasKey := lower[pair[0]]
		_, hasValue := lower[pair[1]]
		if hasKey && hasValue {
			return true
		}
	}
	return false
}
