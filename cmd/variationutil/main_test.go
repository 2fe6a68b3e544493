package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
	"variationutil/api/repositories/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVcf = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=chr1,length=1000>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n" +
	"chr1\t10\t.\tA\tT\t50\tPASS\t.\tGT\t0/1\t1/1\n" +
	"chr2\t20\t.\tG\tC\t50\tPASS\t.\tGT\t0/0\t0/1\n"

func writeConfig(t *testing.T, dir string) string {
	path := filepath.Join(dir, "config.yml")
	content := "debug: false\n" +
		"api:\n" +
		"  scratchPath: " + filepath.Join(dir, "scratch") + "\n" +
		"  densityBinSize: 500\n" +
		"objectStore:\n" +
		"  kind: local\n" +
		"  localPath: " + filepath.Join(dir, "store") + "\n" +
		"catalog:\n" +
		"  sqlitePath: " + filepath.Join(dir, "variations.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig(writeConfig(t, dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scratch"), cfg.Api.ScratchPath)
	assert.Equal(t, 500, cfg.Api.DensityBinSize)
	assert.Equal(t, "local", cfg.ObjectStore.Kind)
	// untouched by the file
	assert.Equal(t, "bgzip", cfg.Tools.Bgzip)
	assert.Equal(t, 48, cfg.Api.SessionMaxAgeHours)

	_, err = loadConfig(filepath.Join(dir, "absent.yml"))
	assert.ErrorIs(t, err, verrors.ErrNotFound)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("api: [oops"), 0644))
	_, err = loadConfig(bad)
	assert.ErrorIs(t, err, verrors.ErrFormat)
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.vcf")
	require.NoError(t, os.WriteFile(path, []byte(sampleVcf), 0644))

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"variationutil", "parse", path}))

	var summary struct {
		Version       string   `json:"version"`
		Genotypes     []string `json:"genotypes"`
		TotalVariants int      `json:"totalVariants"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "VCFv4.2", summary.Version)
	assert.Equal(t, []string{"S1", "S2"}, summary.Genotypes)
	assert.Equal(t, 2, summary.TotalVariants)

	assert.Error(t, app.Run([]string{"variationutil", "parse"}))
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir)

	catalog, err := sqlite.Open(filepath.Join(dir, "variations.db"))
	require.NoError(t, err)
	_, err = catalog.Save(context.Background(), &indexes.StoredObject{
		Ref:       "local/abc/1",
		Type:      "KBaseGwasData.Variations-1.0",
		Name:      "first",
		Workspace: "local",
		CreatedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Data:      indexes.VariationRecord{NumVariants: 7},
	})
	require.NoError(t, err)
	require.NoError(t, catalog.Close())

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"variationutil", "--config", config, "list"}))
	assert.Equal(t, "local/abc/1\tfirst\t2024-05-06T07:08:09Z\t7 variants\n", out.String())
}
