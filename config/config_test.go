package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"PHANTOMRAVEN_WORKERS", "PHANTOMRAVEN_FORMAT", "PHANTOMRAVEN_SIGNATURES",
		"PHANTOMRAVEN_PACKAGES", "PHANTOMRAVEN_MAX_DEPTH", "NO_COLOR",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, &Config{Workers: 4, Format: "text", MaxDepth: 4}, cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PHANTOMRAVEN_WORKERS", "12")
	t.Setenv("PHANTOMRAVEN_FORMAT", "JSON")
	t.Setenv("PHANTOMRAVEN_SIGNATURES", "/etc/sig.yaml")
	t.Setenv("PHANTOMRAVEN_PACKAGES", "/etc/iocs.csv")
	t.Setenv("PHANTOMRAVEN_MAX_DEPTH", "2")
	t.Setenv("NO_COLOR", "1")

	cfg := FromEnv()
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "/etc/sig.yaml", cfg.SignaturesFile)
	assert.Equal(t, "/etc/iocs.csv", cfg.PackagesFile)
	assert.Equal(t, 2, cfg.MaxDepth)
	assert.True(t, cfg.NoColor)
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("PHANTOMRAVEN_WORKERS", "lots")
	t.Setenv("PHANTOMRAVEN_MAX_DEPTH", "-3")

	cfg := FromEnv()
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 4, cfg.MaxDepth)

	t.Setenv("PHANTOMRAVEN_WORKERS", "0")
	assert.Equal(t, 4, FromEnv().Workers)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PHANTOMRAVEN_WORKERS=7\n"), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("PHANTOMRAVEN_WORKERS", "")
	require.NoError(t, os.Unsetenv("PHANTOMRAVEN_WORKERS"))

	assert.Equal(t, 7, Load().Workers)
}
