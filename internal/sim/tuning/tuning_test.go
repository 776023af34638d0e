package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("close_radius_m: 10\nrate_limits:\n  burst: 5\n"), 0o644))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.CloseRadiusM)
	assert.Equal(t, 5, got.RateLimits.Burst)
	assert.Equal(t, 100.0, got.MinLoopLengthM)
	assert.Equal(t, 20.0, got.RateLimits.MessagesPerSecond)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))

	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("min_race_points: 2\n"), 0o644))
	_, err = Load(p)
	assert.ErrorContains(t, err, "min_race_points")

	require.NoError(t, os.WriteFile(p, []byte("close_radius_m: [1\n"), 0o644))
	_, err = Load(p)
	assert.ErrorContains(t, err, "tuning.yaml")
}
