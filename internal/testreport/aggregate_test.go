package testreport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obs-engine/internal/artifact"
	"obs-engine/internal/checks"
)

var thresholds = checks.Thresholds{VolumeThresholdPct: 25, FreshnessThresholdMinutes: 180, ReferenceFreshnessThresholdMinutes: 10080}

func bundleWithTest(t *testing.T) *artifact.Bundle {
	t.Helper()
	manifest, err := artifact.ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.orders": {"unique_id": "model.proj.orders", "name": "orders", "resource_type": "model"},
	    "test.proj.not_null_orders_id": {"unique_id": "test.proj.not_null_orders_id", "name": "not_null_orders_id",
	      "resource_type": "test", "test_metadata": {"name": "not_null", "namespace": "dbt", "kwargs": {"column_name": "id"}},
	      "depends_on": {"nodes": ["model.proj.orders"]}},
	    "test.proj.custom_freshness": {"unique_id": "test.proj.custom_freshness", "name": "freshness_check_orders",
	      "resource_type": "test", "depends_on": {"nodes": ["model.proj.orders"]}}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)
	return artifact.BuildBundle(manifest, nil)
}

func TestAggregate_EnumeratesAttachedTests(t *testing.T) {
	b := bundleWithTest(t)
	report := Aggregate("model.proj.orders", b, nil, nil, thresholds, time.Now(), Comparison{}, Filter{})

	assert.Equal(t, 5, report.TotalTests) // 2 manifest tests + 3 synthetic
	names := map[string]bool{}
	for _, tst := range report.Tests {
		names[tst.Name] = true
	}
	assert.True(t, names["not_null"])
	assert.True(t, names["freshness_check_orders"])
	assert.True(t, names["schema_drift"])
}

func TestAggregate_ClassifiesViaTestMetadataNamespace(t *testing.T) {
	b := bundleWithTest(t)
	report := Aggregate("model.proj.orders", b, nil, nil, thresholds, time.Now(), Comparison{}, Filter{})
	for _, tst := range report.Tests {
		if tst.Name == "not_null" {
			assert.Equal(t, TypeQuality, tst.Type)
			assert.Equal(t, "id", tst.ColumnName)
		}
	}
}

func TestAggregate_ClassifiesViaSubstringFallback(t *testing.T) {
	b := bundleWithTest(t)
	report := Aggregate("model.proj.orders", b, nil, nil, thresholds, time.Now(), Comparison{}, Filter{})
	for _, tst := range report.Tests {
		if tst.Name == "freshness_check_orders" {
			assert.Equal(t, TypeFreshness, tst.Type)
		}
	}
}

func TestAggregate_FailingCountedBeforeFiltering(t *testing.T) {
	previous := bundleWithColumnsForReport("model.proj.orders", map[string]string{"id": "int"}, 1000)
	current := bundleWithColumnsForReport("model.proj.orders", map[string]string{"id": "bigint"}, 1000)

	report := Aggregate("model.proj.orders", current, previous, nil, thresholds, time.Now(), Comparison{}, Filter{TestType: TypeFreshness})
	assert.Equal(t, 1, report.FailingTests) // schema_drift fails, counted before the type filter drops it
	for _, tst := range report.Tests {
		assert.Equal(t, TypeFreshness, tst.Type)
	}
}

func bundleWithColumnsForReport(nodeID string, cols map[string]string, rows float64) *artifact.Bundle {
	c := map[string]artifact.Column{}
	for name, dt := range cols {
		c[name] = artifact.Column{DataType: dt}
	}
	return &artifact.Bundle{
		Assets:  map[string]*artifact.Asset{nodeID: {UniqueID: nodeID, Name: nodeID, Kind: artifact.KindModel, Columns: c}},
		Catalog: map[string]*artifact.CatalogRecord{nodeID: {UniqueID: nodeID, Stats: map[string]artifact.StatValue{"num_rows": artifact.NewStatValue(rows)}}},
	}
}
