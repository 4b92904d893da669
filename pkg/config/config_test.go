package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Fine, c.Fine)
	require.Equal(t, "LabelFrames", c.Levels()[0].Column)
	require.Equal(t, filepath.Join(".", "data", "train_data.csv"), c.DataPath("train_data.csv"))
	require.Equal(t, "/abs/file.csv", c.DataPath("/abs/file.csv"))
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "framer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_dir: /srv/frames
batch_size: 8
top:
  column: Frame
  model_dir: models/top
files:
  - cluster1.csv
zero_shot:
  subset_size: 50
`), 0o644))
	os.Setenv(TokenEnv, "token")
	defer os.Unsetenv(TokenEnv)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, c.BatchSize)
	require.Equal(t, "Frame", c.Top.Column)
	require.Equal(t, "LabelFrames", c.Fine.Column)
	require.Equal(t, []string{"cluster1.csv"}, c.Files)
	require.Equal(t, 50, c.ZeroShot.SubsetSize)
	require.Equal(t, 0.3, c.ZeroShot.Threshold)
	require.Equal(t, "token", c.ZeroShot.Token)
	require.Equal(t, "/srv/frames/models/top", c.Path(c.Top.ModelDir))
	require.Equal(t, "/srv/frames/results", c.Path(c.ResultsDir))
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 0\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestValidateThreshold(t *testing.T) {
	require.NoError(t, ValidateThreshold("threshold", 0.5))
	for _, value := range []float64{0, 1, 1.5, -0.2} {
		require.Error(t, ValidateThreshold("threshold", value), "value %v", value)
	}
}
