package artifact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "metadata": {"dbt_schema_version": "v12", "dbt_version": "1.7.0", "generated_at": "2026-01-01T00:00:00Z"},
  "nodes": {
    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model",
      "depends_on": {"nodes": ["model.proj.b"]}},
    "model.proj.b": {"unique_id": "model.proj.b", "name": "b", "resource_type": "model",
      "depends_on": {"nodes": ["model.proj.c"]}},
    "model.proj.c": {"unique_id": "model.proj.c", "name": "c", "resource_type": "model"}
  },
  "sources": {},
  "macros": {}
}`

func TestBuildBundle_ChildIndexAndUnion(t *testing.T) {
	manifest, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	b := BuildBundle(manifest, nil)

	require.Len(t, b.Assets, 3)
	assert.ElementsMatch(t, []string{"model.proj.a"}, b.ChildIndex["model.proj.b"])
	assert.ElementsMatch(t, []string{"model.proj.b"}, b.ChildIndex["model.proj.c"])
	assert.Empty(t, b.ChildIndex["model.proj.a"])
}

func TestBuildBundle_DanglingParentTolerated(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model",
	      "depends_on": {"nodes": ["model.proj.missing"]}}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)

	b := BuildBundle(manifest, nil)
	require.Len(t, b.Assets, 1)
	assert.ElementsMatch(t, []string{"model.proj.a"}, b.ChildIndex["model.proj.missing"])
	_, ok := b.Asset("model.proj.missing")
	assert.False(t, ok)
}

func TestBuildBundle_DuplicateDependsOnDeduped(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model",
	      "depends_on": {"nodes": ["model.proj.b", "model.proj.b"]}},
	    "model.proj.b": {"unique_id": "model.proj.b", "name": "b", "resource_type": "model"}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)

	b := BuildBundle(manifest, nil)
	asset, ok := b.Asset("model.proj.a")
	require.True(t, ok)
	assert.Equal(t, []string{"model.proj.b"}, asset.UniqueDependsOn())
	assert.Equal(t, []string{"model.proj.a"}, b.ChildIndex["model.proj.b"])
}

func TestValidate_DetectsCycleButDoesNotFail(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model",
	      "depends_on": {"nodes": ["model.proj.b"]}},
	    "model.proj.b": {"unique_id": "model.proj.b", "name": "b", "resource_type": "model",
	      "depends_on": {"nodes": ["model.proj.a"]}}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)

	b := BuildBundle(manifest, nil)
	warnings := Validate(b)
	require.NotEmpty(t, warnings)
	assert.Contains(t, strings.Join(warnings, "\n"), "cycle")
}

func TestValidate_EmptyMetadataWarns(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model"}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	warnings := Validate(b)
	require.NotEmpty(t, warnings)
	assert.Contains(t, strings.Join(warnings, "\n"), "metadata")
}

func TestValidate_PresentMetadataDoesNotWarn(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {"dbt_version": "1.7.0", "generated_at": "2026-01-01T00:00:00Z"}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model"}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	warnings := Validate(b)
	assert.NotContains(t, strings.Join(warnings, "\n"), "metadata")
}

func TestValidate_EmptyUnionWarns(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{"metadata": {}, "nodes": {}, "sources": {}, "macros": {}}`))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	warnings := Validate(b)
	require.NotEmpty(t, warnings)
}

func TestSignature(t *testing.T) {
	manifest, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	assert.Equal(t, "1.7.0:2026-01-01T00:00:00Z:3:0:0", b.Signature())
}

func TestStatValue_PrimitiveAndWrapped(t *testing.T) {
	catalogJSON := `{"nodes": {"model.proj.a": {"metadata": {"type": "table"},
	  "stats": {"num_rows": 1000, "last_modified": {"value": "2026-01-01T00:00:00Z"}}}}}`
	doc, err := ParseCatalog([]byte(catalogJSON))
	require.NoError(t, err)
	b := BuildBundle(&ManifestDoc{Nodes: map[string]rawNode{}}, doc)

	rec, ok := b.Catalog["model.proj.a"]
	require.True(t, ok)

	rows, ok := rec.Stat("num_rows")
	require.True(t, ok)
	f, ok := rows.Float()
	require.True(t, ok)
	assert.Equal(t, 1000.0, f)

	mod, ok := rec.Stat("last_modified")
	require.True(t, ok)
	s, ok := mod.String()
	require.True(t, ok)
	assert.Equal(t, "2026-01-01T00:00:00Z", s)
}

func TestToAsset_LegacyCreatedAtNumeric(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "model.proj.a": {"unique_id": "model.proj.a", "name": "a", "resource_type": "model", "created_at": 3600}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	asset, ok := b.Asset("model.proj.a")
	require.True(t, ok)
	require.NotNil(t, asset.CreatedAtRaw)
	assert.Equal(t, 3600.0, *asset.CreatedAtRaw)
}

func TestToAsset_TestMetadataColumnName(t *testing.T) {
	manifest, err := ParseManifest([]byte(`{
	  "metadata": {}, "nodes": {
	    "test.proj.not_null": {"unique_id": "test.proj.not_null", "name": "not_null_a_id", "resource_type": "test",
	      "test_metadata": {"name": "not_null", "namespace": "dbt", "kwargs": {"column_name": "id"}},
	      "depends_on": {"nodes": ["model.proj.a"]}}
	  }, "sources": {}, "macros": {}
	}`))
	require.NoError(t, err)
	b := BuildBundle(manifest, nil)
	asset, ok := b.Asset("test.proj.not_null")
	require.True(t, ok)
	require.NotNil(t, asset.TestMetadata)
	assert.Equal(t, "id", asset.TestMetadata.ColumnName)
	assert.Equal(t, "not_null", asset.TestMetadata.Name)
}
