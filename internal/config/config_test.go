package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(src, 0755))
	return &Config{
		Source: src,
		Dest:   filepath.Join(dir, "dst"),
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Normalize())
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingSource(t *testing.T) {
	cfg := &Config{Source: filepath.Join(t.TempDir(), "nope"), Dest: t.TempDir()}
	require.NoError(t, cfg.Normalize())

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source", verr.Field)
}

func TestValidateDestInsideSource(t *testing.T) {
	cfg := validConfig(t)
	cfg.Dest = filepath.Join(cfg.Source, "rescued")
	require.NoError(t, cfg.Normalize())

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Msg, "inside the source tree")
}

func TestValidateDestEqualsSource(t *testing.T) {
	cfg := validConfig(t)
	cfg.Dest = cfg.Source
	require.NoError(t, cfg.Normalize())
	assert.Error(t, cfg.Validate())
}

func TestValidateAnalyzeOnlyNeedsNoDest(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = AnalyzeOnly
	cfg.Dest = ""
	require.NoError(t, cfg.Normalize())

	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.HashDedup, "dedup mode implies hashing")
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Normalize())

	assert.Positive(t, cfg.Workers)
	assert.Positive(t, cfg.FileTimeout)
	assert.NotNil(t, cfg.Rules)
	assert.True(t, filepath.IsAbs(cfg.Source))
}

func TestNormalizeSmartFilter(t *testing.T) {
	cfg := validConfig(t)
	cfg.SmartFilter = true
	require.NoError(t, cfg.Normalize())

	assert.True(t, cfg.Rules.SkipDir("node_modules"))
	assert.True(t, cfg.Rules.SkipDir("$RECYCLE.BIN"))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"saver":   Saver,
		"CLEANUP": Cleanup,
		"dedup":   AnalyzeOnly,
		"analyze": AnalyzeOnly,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("turbo")
	assert.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	f, err := loadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, f.Defaults.Workers)
}

func TestLoadFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[defaults]
workers = 4
hash_dedup = true
date_granularity = "year"
exclude_exts = ".tmp,.log"
`), 0644))

	f, err := loadFrom(path)
	require.NoError(t, err)
	require.NotNil(t, f.Defaults.Workers)
	assert.Equal(t, 4, *f.Defaults.Workers)
	require.NotNil(t, f.Defaults.HashDedup)
	assert.True(t, *f.Defaults.HashDedup)
	assert.Equal(t, "year", *f.Defaults.DateGranularity)
	assert.Equal(t, ".tmp,.log", *f.Defaults.ExcludeExts)
}
