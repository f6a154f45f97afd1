package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadEngineConfigAppliesDefaultsForOmittedSections(t *testing.T) {
	path := writeTemp(t, "workers: 4\n")
	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1000, cfg.OptimisticBatchSize)
}

func TestLoadEngineConfigDefaultWorkersIsGOMAXPROCS(t *testing.T) {
	path := writeTemp(t, "optimistic_batch_size: 50\n")
	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
}

func TestLoadEngineConfigRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "bogus_field: true\n")
	_, err := LoadEngineConfig(path)
	assert.Error(t, err)
}

func TestLoadEngineConfigExplicitLPGraph(t *testing.T) {
	path := writeTemp(t, "lp_graph:\n  - src: 0\n    dst: 1\n  - src: 1\n    dst: 0\n")
	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []LPEdge{{Src: 0, Dst: 1}, {Src: 1, Dst: 0}}, cfg.LPGraph)
}
