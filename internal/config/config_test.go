package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 900, c.Loops.ReflectionIntervalSecs)
	assert.Equal(t, 1200, c.Loops.PersonalityIntervalSecs)
	assert.Equal(t, 0.99, c.Thresholds.DedupCosine)
}

func TestValidate_RejectsOutOfRangeThreshold(t *testing.T) {
	c := Default()
	c.Thresholds.MemoryAlignment = 1.5
	assert.ErrorContains(t, c.Validate(), "memory_alignment")
}

func TestValidate_RejectsShortLoopInterval(t *testing.T) {
	c := Default()
	c.Loops.ReflectionIntervalSecs = 10
	assert.ErrorContains(t, c.Validate(), "reflection_interval_secs")
}

func TestValidate_RejectsBadOverlap(t *testing.T) {
	c := Default()
	c.SSE.ChunkOverlapChars = c.SSE.MaxChunkChars
	assert.ErrorContains(t, c.Validate(), "chunk_overlap_chars")
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CRT_REFLECTION_LOOP_SECONDS", "1800")
	t.Setenv("CRT_STORAGE_PATH", "/tmp/custom.db")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1800, c.Loops.ReflectionIntervalSecs)
	assert.Equal(t, "/tmp/custom.db", c.Storage.Path)
}

func TestLoadFromFile_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	c := Default()
	c.Server.Name = "crt-test"
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "crt-test", loaded.Server.Name)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSaveToFile_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, Default().SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"reinforce_delta\"")
}
