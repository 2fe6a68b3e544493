package tracks

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
	"variationutil/api/models/indexes"
	"variationutil/api/services/metadata"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/tools"
	"variationutil/api/utils"

	"go.uber.org/zap"
)

type (
	Builder struct {
		runner         tools.Runner
		paths          tools.Paths
		store          objectstore.Store
		templatePath   string
		fileServiceUrl string
		binSize        int64
		logger         *zap.Logger
	}

	// Request names what the working copy is built from. Contigs are
	// required; each track is built only when its inputs are set.
	Request struct {
		Contigs          []metadata.Contig
		GffPath          string
		VcfPath          string
		VcfHandleId      string
		VcfIndexHandleId string
	}

	Result struct {
		WorkingCopy  string           `json:"workingCopy"`
		RefSeqs      []RefSeq         `json:"refSeqs"`
		Tracks       []Track          `json:"tracks"`
		Handles      []indexes.Handle `json:"handles"`
		PackedHandle indexes.Handle   `json:"packedHandle"`
	}
)

func NewBuilder(runner tools.Runner, store objectstore.Store, cfg *models.Config, logger *zap.Logger) *Builder {
	return &Builder{
		runner:         runner,
		paths:          tools.PathsFromConfig(cfg),
		store:          store,
		templatePath:   cfg.Browser.TemplatePath,
		fileServiceUrl: cfg.Browser.FileServiceUrl,
		binSize:        int64(cfg.Api.DensityBinSize),
		logger:         utils.OrNop(logger),
	}
}

// Build prepares every track it has inputs for, writes the working copy
// under sessionDir/jbrowse and uploads it zipped.
func (b *Builder) Build(ctx context.Context, req Request, sessionDir string) (*Result, error) {
	if len(req.Contigs) == 0 {
		return nil, verrors.New(verrors.KindInconsistentData, "reference sequences need assembly contigs")
	}

	workDir := filepath.Join(sessionDir, "tracks")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to create %s", workDir)
	}

	res := &Result{RefSeqs: RefSeqs(req.Contigs), Tracks: []Track{}, Handles: []indexes.Handle{}}

	if req.GffPath != "" {
		track, handles, err := b.genomeFeatures(ctx, req.GffPath, workDir)
		if err != nil {
			return nil, err
		}
		res.Tracks = append(res.Tracks, track)
		res.Handles = append(res.Handles, handles...)
	} else {
		b.logger.Info("skipping genome features track")
	}

	if req.VcfPath != "" && b.binSize > 0 {
		track, handle, err := b.density(ctx, req.VcfPath, req.Contigs, workDir)
		if err != nil {
			return nil, err
		}
		res.Tracks = append(res.Tracks, track)
		res.Handles = append(res.Handles, handle)
	} else {
		b.logger.Info("skipping variation density track")
	}

	if req.VcfHandleId != "" && req.VcfIndexHandleId != "" {
		// already stored with the record, nothing to upload
		res.Tracks = append(res.Tracks, VariantTrack(b.fileServiceUrl, req.VcfHandleId, req.VcfIndexHandleId))
	} else {
		b.logger.Info("skipping variation track")
	}

	if len(res.Tracks) == 0 {
		return nil, verrors.New(verrors.KindInconsistentData, "no tracks found")
	}

	res.WorkingCopy = filepath.Join(sessionDir, "jbrowse")
	if err := b.writeWorkingCopy(res.WorkingCopy, res.RefSeqs, res.Tracks); err != nil {
		return nil, err
	}

	packed := res.WorkingCopy + ".zip"
	if err := Pack(res.WorkingCopy, packed); err != nil {
		return nil, err
	}
	handle, err := b.upload(ctx, packed)
	if err != nil {
		return nil, err
	}
	res.PackedHandle = handle
	res.Handles = append(res.Handles, handle)

	b.logger.Info("built browser working copy",
		zap.String("path", res.WorkingCopy),
		zap.Int("tracks", len(res.Tracks)),
		zap.Int("refSeqs", len(res.RefSeqs)))
	return res, nil
}

func (b *Builder) genomeFeatures(ctx context.Context, gffPath string, workDir string) (Track, []indexes.Handle, error) {
	sorted := filepath.Join(workDir, filepath.Base(gffPath)+"_sorted")
	if err := SortGff(gffPath, sorted); err != nil {
		return Track{}, nil, err
	}

	compressed := sorted + ".gz"
	if err := b.compress(ctx, sorted, compressed); err != nil {
		return Track{}, nil, err
	}

	cmd := b.paths.Index(tools.PresetGff, compressed)
	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return Track{}, nil, err
	}
	indexPath := compressed + ".tbi"
	if _, err := os.Stat(indexPath); err != nil {
		return Track{}, nil, verrors.NewToolError(cmd.String(), 0, "index file "+indexPath+" was not produced", err)
	}

	gff, err := b.upload(ctx, compressed)
	if err != nil {
		return Track{}, nil, err
	}
	gffIndex, err := b.upload(ctx, indexPath)
	if err != nil {
		return Track{}, nil, err
	}
	return GenomeFeaturesTrack(b.fileServiceUrl, gff.Id, gffIndex.Id), []indexes.Handle{gff, gffIndex}, nil
}

func (b *Builder) density(ctx context.Context, vcfPath string, contigs []metadata.Contig, workDir string) (Track, indexes.Handle, error) {
	bins, err := DensityBins(vcfPath, b.binSize, metadata.ContigLengths(contigs))
	if err != nil {
		return Track{}, indexes.Handle{}, err
	}

	bedGraph := filepath.Join(workDir, "vcf_bedgraph.txt_sorted")
	if err := WriteBedGraph(bedGraph, bins); err != nil {
		return Track{}, indexes.Handle{}, err
	}
	chromSizes := filepath.Join(workDir, "chr_length.txt")
	if err := WriteChromSizes(chromSizes, contigs); err != nil {
		return Track{}, indexes.Handle{}, err
	}

	bigWig := filepath.Join(workDir, "vcf_bedgraph.txt_bigwig.bw")
	cmd := b.paths.ToBigWig(bedGraph, chromSizes, bigWig)
	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return Track{}, indexes.Handle{}, err
	}
	if _, err := os.Stat(bigWig); err != nil {
		return Track{}, indexes.Handle{}, verrors.NewToolError(cmd.String(), 0, "bigwig "+bigWig+" was not produced", err)
	}

	handle, err := b.upload(ctx, bigWig)
	if err != nil {
		return Track{}, indexes.Handle{}, err
	}
	b.logger.Debug("density track", zap.Int("bins", len(bins)), zap.String("id", handle.Id))
	return DensityTrack(b.fileServiceUrl, handle.Id), handle, nil
}

func (b *Builder) compress(ctx context.Context, src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return verrors.Wrap(verrors.KindNotFound, err, "unable to open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", dst)
	}
	if _, err := b.runner.Run(ctx, b.paths.Compress(in, out)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *Builder) upload(ctx context.Context, path string) (indexes.Handle, error) {
	handle, err := b.store.Upload(ctx, path)
	if err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s failed", path)
	}
	if err := objectstore.Verify(path, handle); err != nil {
		return indexes.Handle{}, err
	}
	return handle, nil
}

// writeWorkingCopy copies the browser template to dir and drops in
// data/trackList.json and data/seq/refSeqs.json.
func (b *Builder) writeWorkingCopy(dir string, refSeqs []RefSeq, tracks []Track) error {
	if b.templatePath != "" {
		if err := os.CopyFS(dir, os.DirFS(b.templatePath)); err != nil {
			return verrors.Wrap(verrors.KindStorage, err, "unable to copy browser template %s", b.templatePath)
		}
	}

	seqDir := filepath.Join(dir, "data", "seq")
	if err := os.MkdirAll(seqDir, 0755); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", seqDir)
	}

	if err := writeJson(filepath.Join(dir, "data", "trackList.json"), TrackList{FormatVersion: FormatVersion, Tracks: tracks}); err != nil {
		return err
	}
	return writeJson(filepath.Join(seqDir, "refSeqs.json"), refSeqs)
}

func writeJson(path string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to write %s", path)
	}
	return nil
}

// Pack zips the contents of dir into dst.
func Pack(dir string, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", dst)
	}
	zw := zip.NewWriter(f)
	if err := zw.AddFS(os.DirFS(dir)); err != nil {
		zw.Close()
		f.Close()
		return verrors.Wrap(verrors.KindStorage, err, "unable to pack %s", dir)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return verrors.Wrap(verrors.KindStorage, err, "unable to pack %s", dir)
	}
	return f.Close()
}
