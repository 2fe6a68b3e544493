package sanitation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"variationutil/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	cfg := &models.Config{}
	cfg.Api.ScratchPath = t.TempDir()
	cfg.Api.SessionMaxAgeHours = 48

	now := time.Now()
	old := filepath.Join(cfg.Api.ScratchPath, "old")
	fresh := filepath.Join(cfg.Api.ScratchPath, "fresh")
	for _, d := range []string{old, fresh} {
		require.NoError(t, os.MkdirAll(d, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(d, "variation.vcf.gz"), []byte("x"), 0644))
	}
	stale := now.Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	// loose files in the scratch path are not sessions
	loose := filepath.Join(cfg.Api.ScratchPath, "notes.txt")
	require.NoError(t, os.WriteFile(loose, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(loose, stale, stale))

	ss := NewSanitationService(cfg, nil)
	defer ss.Stop()

	removed, err := ss.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
	assert.FileExists(t, loose)
}

func TestSweepDisabled(t *testing.T) {
	cfg := &models.Config{}
	cfg.Api.ScratchPath = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Api.ScratchPath, "s"), 0755))

	ss := NewSanitationService(cfg, nil)
	defer ss.Stop()

	removed, err := ss.Sweep(time.Now().Add(1000 * time.Hour))
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.DirExists(t, filepath.Join(cfg.Api.ScratchPath, "s"))
}

func TestSweepMissingScratch(t *testing.T) {
	cfg := &models.Config{}
	cfg.Api.ScratchPath = filepath.Join(t.TempDir(), "absent")
	cfg.Api.SessionMaxAgeHours = 1

	ss := NewSanitationService(cfg, nil)
	defer ss.Stop()

	removed, err := ss.Sweep(time.Now())
	require.NoError(t, err)
	assert.Empty(t, removed)
}
