package tracks

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
	"variationutil/api/services/metadata"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/tools"
	"variationutil/api/services/tools/toolstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const densityVcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"chr10\t1\t.\tA\tT\t50\tPASS\t.\n" +
	"chr1\t5\t.\tA\tT\t50\tPASS\t.\n" +
	"chr1\t9999\t.\tA\tT\t50\tPASS\t.\n" +
	"chr1\t10000\t.\tA\tT\t50\tPASS\t.\n" +
	"chr1\t25000\t.\tA\tT\t50\tPASS\t.\n" +
	"chr2\t3\t.\tA\tT\t50\tPASS\t.\n"

const unsortedGff = "##gff-version 3\n" +
	"chr2\tsrc\tgene\t50\t90\t.\t+\t.\tID=g3\n" +
	"chr1\tsrc\tgene\t10\t20\t.\t+\t.\tID=g2\n" +
	"chr1\tsrc\tgene\t9\t20\t.\t+\t.\tID=g1\n" +
	"chr1\tsrc\tmRNA\t10\t20\t.\t+\t.\tID=m2\n"

var contigs = []metadata.Contig{
	{ContigId: "chr2", Length: 10000},
	{ContigId: "chr1", Length: 25500},
	{ContigId: "chr10", Length: 100},
}

func writeVcf(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "variation.vcf.gz")
	require.NoError(t, toolstest.WriteBgzf(path, densityVcf))
	return path
}

func testConfig(template string) *models.Config {
	cfg := &models.Config{}
	cfg.Tools.Bgzip = "bgzip"
	cfg.Tools.Tabix = "tabix"
	cfg.Tools.BedGraphToBigWig = "bedGraphToBigWig"
	cfg.Browser.TemplatePath = template
	cfg.Browser.FileServiceUrl = "https://files.example.org/jbrowse_query/"
	cfg.Api.DensityBinSize = 10000
	return cfg
}

func TestRefSeqs(t *testing.T) {
	refs := RefSeqs(contigs)
	require.Len(t, refs, 3)
	assert.Equal(t, RefSeq{Name: "chr2", Start: 0, End: 10000, Length: 10000, SeqChunkSize: 20000}, refs[0])
	assert.Equal(t, "chr1", refs[1].Name)
	assert.Equal(t, "chr10", refs[2].Name)
}

func TestDensityBins(t *testing.T) {
	path := writeVcf(t)

	bins, err := DensityBins(path, 10000, metadata.ContigLengths(contigs))
	require.NoError(t, err)
	assert.Equal(t, []DensityBin{
		{Chrom: "chr1", Start: 0, End: 10000, Count: 2},
		{Chrom: "chr1", Start: 10000, End: 20000, Count: 1},
		// last bin stops at the contig end
		{Chrom: "chr1", Start: 20000, End: 25500, Count: 1},
		{Chrom: "chr10", Start: 0, End: 100, Count: 1},
		// a bin ending exactly on the contig end is untouched
		{Chrom: "chr2", Start: 0, End: 10000, Count: 1},
	}, bins)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 6, total)

	_, err = DensityBins(path, 10000, map[string]int64{"chr1": 25500})
	assert.ErrorIs(t, err, verrors.ErrInconsistentData)

	_, err = DensityBins(path, 0, metadata.ContigLengths(contigs))
	assert.ErrorIs(t, err, verrors.ErrInconsistentData)
}

func TestDensityBinsLastBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variation.vcf.gz")
	require.NoError(t, toolstest.WriteBgzf(path, "##fileformat=VCFv4.2\n"+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"+
		"chr1\t19999\t.\tA\tT\t50\tPASS\t.\n"+
		"chr1\t20000\t.\tA\tT\t50\tPASS\t.\n"))

	bins, err := DensityBins(path, 10000, map[string]int64{"chr1": 20000})
	require.NoError(t, err)
	assert.Equal(t, []DensityBin{{Chrom: "chr1", Start: 10000, End: 20000, Count: 2}}, bins)
	for _, b := range bins {
		assert.Less(t, b.Start, b.End)
	}
}

func TestSortGff(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "genome.gff")
	dst := filepath.Join(dir, "genome.gff_sorted")
	require.NoError(t, os.WriteFile(src, []byte(unsortedGff), 0644))

	require.NoError(t, SortGff(src, dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "##gff-version 3\n"+
		"chr1\tsrc\tgene\t9\t20\t.\t+\t.\tID=g1\n"+
		"chr1\tsrc\tgene\t10\t20\t.\t+\t.\tID=g2\n"+
		"chr1\tsrc\tmRNA\t10\t20\t.\t+\t.\tID=m2\n"+
		"chr2\tsrc\tgene\t50\t90\t.\t+\t.\tID=g3\n", string(b))

	require.NoError(t, os.WriteFile(src, []byte("chr1\tsrc\tgene\n"), 0644))
	assert.ErrorIs(t, SortGff(src, dst), verrors.ErrFormat)
}

func TestTrackDescriptors(t *testing.T) {
	base := "https://files.example.org/jbrowse_query/"

	b, err := json.Marshal(DensityTrack(base, "bw1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"Variation Densityy","key":"Variation_density",
		"storeClass":"JBrowse/Store/SeqFeature/BigWig",
		"urlTemplate":"https://files.example.org/jbrowse_query/bw1",
		"type":"JBrowse/View/Track/Wiggle/XYPlot"}`, string(b))

	v := VariantTrack(base, "vcf1", "tbi1")
	assert.Equal(t, "JBrowse/Store/SeqFeature/VCFTabix", v.StoreClass)
	assert.Equal(t, "https://files.example.org/jbrowse_query/tbi1", v.TbiUrlTemplate)

	g := GenomeFeaturesTrack(base, "gff1", "gfftbi1")
	assert.Equal(t, "GenomeFeatures", g.Key)
	assert.Equal(t, "JBrowse/View/Track/CanvasFeatures", g.Type)
}

func newFixture(t *testing.T) (*toolstest.Runner, objectstore.Store, *models.Config) {
	template := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(template, "index.html"), []byte("<html></html>"), 0644))
	cfg := testConfig(template)

	runner := toolstest.NewRunner(tools.PathsFromConfig(cfg))
	runner.On(cfg.Tools.BedGraphToBigWig, func(cmd tools.Command) (*tools.Result, error) {
		if err := os.WriteFile(cmd.Args[2], []byte("bigwig"), 0644); err != nil {
			return toolstest.Fail(1, err.Error())(cmd)
		}
		return &tools.Result{Command: cmd.String()}, nil
	})

	store, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return runner, store, cfg
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	runner, store, cfg := newFixture(t)
	session := t.TempDir()

	gff := filepath.Join(t.TempDir(), "genome.gff")
	require.NoError(t, os.WriteFile(gff, []byte(unsortedGff), 0644))

	res, err := NewBuilder(runner, store, cfg, nil).Build(ctx, Request{
		Contigs:          contigs,
		GffPath:          gff,
		VcfPath:          writeVcf(t),
		VcfHandleId:      "vcf-id",
		VcfIndexHandleId: "vcf-index-id",
	}, session)
	require.NoError(t, err)

	// gff, gff index, bigwig, packed working copy
	assert.Len(t, res.Handles, 4)
	assert.Equal(t, res.PackedHandle, res.Handles[3])
	require.Len(t, res.Tracks, 3)
	assert.Equal(t, "GenomeFeatures", res.Tracks[0].Key)
	assert.Equal(t, "https://files.example.org/jbrowse_query/"+res.Handles[0].Id, res.Tracks[0].UrlTemplate)
	assert.Equal(t, "Variation_density", res.Tracks[1].Key)
	assert.Equal(t, "https://files.example.org/jbrowse_query/vcf-id", res.Tracks[2].UrlTemplate)

	indexCalls := runner.CallsTo("tabix")
	require.Len(t, indexCalls, 1)
	assert.Equal(t, []string{"-p", "gff", filepath.Join(session, "tracks", "genome.gff_sorted.gz")}, indexCalls[0].Args)

	bigWigCalls := runner.CallsTo("bedGraphToBigWig")
	require.Len(t, bigWigCalls, 1)
	bedGraph, err := os.ReadFile(bigWigCalls[0].Args[0])
	require.NoError(t, err)
	assert.Equal(t, "chr1\t0\t10000\t2\nchr1\t10000\t20000\t1\nchr1\t20000\t25500\t1\nchr10\t0\t100\t1\nchr2\t0\t10000\t1\n", string(bedGraph))
	sizes, err := os.ReadFile(bigWigCalls[0].Args[1])
	require.NoError(t, err)
	assert.Equal(t, "chr2\t10000\nchr1\t25500\nchr10\t100\n", string(sizes))

	b, err := os.ReadFile(filepath.Join(res.WorkingCopy, "data", "trackList.json"))
	require.NoError(t, err)
	var list TrackList
	require.NoError(t, json.Unmarshal(b, &list))
	assert.Equal(t, 1, list.FormatVersion)
	assert.Equal(t, res.Tracks, list.Tracks)

	b, err = os.ReadFile(filepath.Join(res.WorkingCopy, "data", "seq", "refSeqs.json"))
	require.NoError(t, err)
	var refs []RefSeq
	require.NoError(t, json.Unmarshal(b, &refs))
	assert.Equal(t, RefSeqs(contigs), refs)

	zr, err := zip.OpenReader(res.WorkingCopy + ".zip")
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "index.html")
	assert.Contains(t, names, "data/trackList.json")
	assert.Contains(t, names, "data/seq/refSeqs.json")
}

func TestBuildWithoutInputs(t *testing.T) {
	runner, store, cfg := newFixture(t)
	builder := NewBuilder(runner, store, cfg, nil)

	_, err := builder.Build(context.Background(), Request{Contigs: contigs}, t.TempDir())
	assert.ErrorIs(t, err, verrors.ErrInconsistentData)

	_, err = builder.Build(context.Background(), Request{VcfHandleId: "a", VcfIndexHandleId: "b"}, t.TempDir())
	assert.ErrorIs(t, err, verrors.ErrInconsistentData)
	assert.Empty(t, runner.Calls)
}

func TestBuildFailsWhenBigWigIsMissing(t *testing.T) {
	runner, store, cfg := newFixture(t)
	runner.On(cfg.Tools.BedGraphToBigWig, toolstest.Output(0, ""))

	_, err := NewBuilder(runner, store, cfg, nil).Build(context.Background(), Request{
		Contigs: contigs,
		VcfPath: writeVcf(t),
	}, t.TempDir())
	assert.ErrorIs(t, err, verrors.ErrTool)
}
