package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reubano/csv2ofx/pkg/convert"
)

func TestBuildDefaults(t *testing.T) {
	cfg, err := Build("", nil)
	require.NoError(t, err)

	assert.Equal(t, "ofx", cfg.Format)
	assert.Equal(t, "default", cfg.Mapping)
	assert.Equal(t, "ENG", cfg.Language)
	assert.Equal(t, convert.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, "0.0.0.0:3000", cfg.ListenAddr)
	assert.False(t, cfg.MSMoney)
}

func TestBuildConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "format: qif\nmapping: mint\nms-money: true\nchunksize: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Build(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "qif", cfg.Format)
	assert.Equal(t, "mint", cfg.Mapping)
	assert.True(t, cfg.MSMoney)
	assert.Equal(t, 500, cfg.ChunkSize)
}

func TestBuildMissingConfigFile(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestBuildFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "ofx", "")
	flags.String("start", "", "")
	require.NoError(t, flags.Set("format", "qif"))
	require.NoError(t, flags.Set("start", "2010-01-01"))

	cfg, err := Build("", flags)
	require.NoError(t, err)
	assert.Equal(t, "qif", cfg.Format)
	assert.Equal(t, "2010-01-01", cfg.Start)
}

func TestWindow(t *testing.T) {
	cfg := &Config{Start: "2010-01-01", End: "2010-12-31"}
	start, end, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, 2010, start.Year())
	assert.Equal(t, 12, int(end.Month()))

	cfg = &Config{}
	start, end, err = cfg.Window()
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	cfg = &Config{Start: "never"}
	_, _, err = cfg.Window()
	require.Error(t, err)
}
