package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqv2x/falconsweep/internal/sweep"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `{
  "scenario": {
    "signatureScheme": "ecdsa",
    "numVehicles": 1,
    "numMessages": 10,
    "falcon": {
      "fragmentBytes": 512,
      "compression": "none"
    }
  }
}`

func TestLoad_ValidDocument(t *testing.T) {
	doc, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "ecdsa", doc.Scenario.SignatureScheme)
	assert.Equal(t, 1, doc.Scenario.NumVehicles)
	assert.Equal(t, 10, doc.Scenario.NumMessages)
	require.NotNil(t, doc.Scenario.Falcon)
	require.NotNil(t, doc.Scenario.Falcon.FragmentBytes)
	assert.Equal(t, 512, *doc.Scenario.Falcon.FragmentBytes)
}

func TestLoad_MissingRequiredField(t *testing.T) {
	_, err := Load(writeConfig(t, `{"scenario": {"numVehicles": 1}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestLoad_WrongFieldType(t *testing.T) {
	_, err := Load(writeConfig(t, `{"scenario": {"numVehicles": "three", "numMessages": 10}}`))
	require.Error(t, err)
}

func TestLoad_NotAnObject(t *testing.T) {
	_, err := Load(writeConfig(t, `[1, 2, 3]`))
	require.Error(t, err)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoad_NoFalconSection(t *testing.T) {
	doc, err := Load(writeConfig(t, `{"scenario": {"numVehicles": 2, "numMessages": 5}}`))
	require.NoError(t, err)
	assert.Nil(t, doc.Scenario.Falcon)

	defaults := doc.Defaults()
	assert.Nil(t, defaults.FragmentSize)
	assert.Nil(t, defaults.Compression)
}

func TestMaterialize_AppliesCombinationOverrides(t *testing.T) {
	doc, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	frag := 1024
	comp := "zlib"
	path, err := Materialize(doc, "falcon", Overrides{}, sweep.Combination{
		FragmentSize: &frag,
		Compression:  &comp,
	})
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var derived Document
	require.NoError(t, json.Unmarshal(data, &derived))
	assert.Equal(t, "falcon", derived.Scenario.SignatureScheme)
	require.NotNil(t, derived.Scenario.Falcon)
	assert.Equal(t, 1024, *derived.Scenario.Falcon.FragmentBytes)
	assert.Equal(t, "zlib", *derived.Scenario.Falcon.Compression)
}

func TestMaterialize_AbsentDimensionsLeaveBaseValues(t *testing.T) {
	doc, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	path, err := Materialize(doc, "ecdsa", Overrides{}, sweep.Combination{})
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var derived Document
	require.NoError(t, json.Unmarshal(data, &derived))
	assert.Equal(t, "ecdsa", derived.Scenario.SignatureScheme)
	require.NotNil(t, derived.Scenario.Falcon)
	assert.Equal(t, 512, *derived.Scenario.Falcon.FragmentBytes)
	assert.Equal(t, "none", *derived.Scenario.Falcon.Compression)
}

func TestMaterialize_NeverMutatesBase(t *testing.T) {
	doc, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	vehicles := 7
	messages := 99
	combos := []sweep.Combination{
		{FragmentSize: intPtr(64)},
		{Compression: strPtr("lz4")},
		{FragmentSize: intPtr(2048), Compression: strPtr("zlib")},
	}
	for _, c := range combos {
		path, err := Materialize(doc, "falcon", Overrides{Vehicles: &vehicles, Messages: &messages}, c)
		require.NoError(t, err)
		os.Remove(path)
	}

	assert.Equal(t, "ecdsa", doc.Scenario.SignatureScheme)
	assert.Equal(t, 1, doc.Scenario.NumVehicles)
	assert.Equal(t, 10, doc.Scenario.NumMessages)
	assert.Equal(t, 512, *doc.Scenario.Falcon.FragmentBytes)
	assert.Equal(t, "none", *doc.Scenario.Falcon.Compression)
}

func TestMaterialize_UniqueArtifactNames(t *testing.T) {
	doc, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	first, err := Materialize(doc, "ecdsa", Overrides{}, sweep.Combination{})
	require.NoError(t, err)
	defer os.Remove(first)

	second, err := Materialize(doc, "ecdsa", Overrides{}, sweep.Combination{})
	require.NoError(t, err)
	defer os.Remove(second)

	assert.NotEqual(t, first, second)
}

func TestValidate_ReportsSchemaViolation(t *testing.T) {
	err := Validate(writeConfig(t, `{"scenario": {"signatureScheme": "rsa", "numVehicles": 1, "numMessages": 1}}`))
	require.Error(t, err)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
