package normalizer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/constants"
	"variationutil/api/models/constants/encoding"
	"variationutil/api/services/sniffer"
	"variationutil/api/services/tools"
	"variationutil/api/utils"

	"github.com/biogo/hts/tabix"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

const CanonicalFileName = "variation.vcf.gz"

type (
	NormalizedVcf struct {
		VcfPath          string
		IndexPath        string
		Encoding         constants.Encoding
		HeadersRewritten int
		IndexedContigs   []string

		// Orphaned lists superseded intermediates; nothing downstream
		// references them.
		Orphaned []string
	}

	RepairResult struct {
		Changed   int
		VcfPath   string
		IndexPath string
		Orphaned  []string
	}

	Normalizer struct {
		runner tools.Runner
		paths  tools.Paths
		logger *zap.Logger

		// ReadIndex lists the references of a freshly built index;
		// nil skips the check.
		ReadIndex func(indexPath string) ([]string, error)
	}
)

func (r *RepairResult) Repaired() bool {
	return r.Changed > 0
}

func NewNormalizer(runner tools.Runner, paths tools.Paths, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		runner:    runner,
		paths:     paths,
		logger:    utils.OrNop(logger),
		ReadIndex: IndexedContigs,
	}
}

// Normalize sniffs the staged file, block-compresses it into the session
// directory, indexes it, and repairs path-like sample names.
func (n *Normalizer) Normalize(ctx context.Context, stagedPath string, sessionDir string) (*NormalizedVcf, error) {
	enc, err := sniffer.Sniff(stagedPath)
	if err != nil {
		return nil, err
	}
	n.logger.Info("sniffed input", zap.String("path", stagedPath), zap.String("encoding", string(enc)))

	dest := filepath.Join(sessionDir, CanonicalFileName)
	if err := n.Recompress(ctx, stagedPath, enc, dest); err != nil {
		return nil, err
	}

	indexPath, err := n.Index(ctx, dest)
	if err != nil {
		return nil, err
	}

	repair, err := n.RepairHeaders(ctx, dest)
	if err != nil {
		return nil, err
	}

	out := &NormalizedVcf{
		VcfPath:   dest,
		IndexPath: indexPath,
		Encoding:  enc,
	}
	if repair.Repaired() {
		out.VcfPath = repair.VcfPath
		out.IndexPath = repair.IndexPath
		out.HeadersRewritten = repair.Changed
		out.Orphaned = repair.Orphaned
	}

	if n.ReadIndex != nil {
		if out.IndexedContigs, err = n.ReadIndex(out.IndexPath); err != nil {
			return nil, verrors.Wrap(verrors.KindTool, err, "index %s is unreadable", out.IndexPath)
		}
	}

	return out, nil
}

// Recompress pipes path, decompressed if needed, through the block
// compressor into dest.
func (n *Normalizer) Recompress(ctx context.Context, path string, enc constants.Encoding, dest string) error {
	src, err := os.Open(path)
	if err != nil {
		return verrors.Wrap(verrors.KindNotFound, err, "unable to open %s", path)
	}
	defer src.Close()

	var in io.Reader
	switch enc {
	case encoding.Text:
		in = src
	case encoding.Gzip:
		gz, err := pgzip.NewReader(src)
		if err != nil {
			return verrors.Wrap(verrors.KindFormat, err, "unable to decompress %s", path)
		}
		defer gz.Close()
		in = gz
	default:
		return verrors.New(verrors.KindFormat, "unsupported file format: %s", path)
	}

	out, err := os.Create(dest)
	if err != nil {
		return verrors.Wrap(verrors.KindTool, err, "unable to create %s", dest)
	}

	cmd := n.paths.Compress(in, out)
	if _, err := n.runner.Run(ctx, cmd); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return verrors.NewToolError(cmd.String(), 0, "", err)
	}

	n.logger.Debug("recompressed", zap.String("source", path), zap.String("destination", dest))
	return nil
}

// Index builds the random-access index for a block-compressed VCF and
// returns its path, always path + ".tbi".
func (n *Normalizer) Index(ctx context.Context, path string) (string, error) {
	cmd := n.paths.Index(tools.PresetVcf, path)
	if _, err := n.runner.Run(ctx, cmd); err != nil {
		return "", err
	}

	indexPath := path + ".tbi"
	if _, err := os.Stat(indexPath); err != nil {
		return "", verrors.NewToolError(cmd.String(), 0, "index file "+indexPath+" was not produced", err)
	}
	return indexPath, nil
}

// RepairHeaders strips directory prefixes from sample names in the
// #CHROM line. When nothing changes the result reports zero changes and
// points at the original files.
func (n *Normalizer) RepairHeaders(ctx context.Context, path string) (*RepairResult, error) {
	unchanged := &RepairResult{VcfPath: path, IndexPath: path + ".tbi"}

	headerPath := path + "_header.txt"
	hf, err := os.Create(headerPath)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to create %s", headerPath)
	}
	_, err = n.runner.Run(ctx, n.paths.DumpHeader(path, hf))
	hf.Close()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to read %s", headerPath)
	}

	lines := strings.SplitAfter(string(content), "\n")
	changed := 0
	for i, line := range lines {
		if !strings.HasPrefix(line, "#CHROM") {
			continue
		}
		body := strings.TrimRight(line, "\r\n")
		repaired, c := RepairSampleColumns(body)
		lines[i] = repaired + line[len(body):]
		changed += c
	}
	if changed == 0 {
		os.Remove(headerPath)
		return unchanged, nil
	}
	n.logger.Info("rewriting sample names", zap.String("path", path), zap.Int("changed", changed))

	newHeaderPath := path + "_new_header.txt"
	if err := os.WriteFile(newHeaderPath, []byte(strings.Join(lines, "")), 0644); err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to write %s", newHeaderPath)
	}

	outPath := strings.TrimSuffix(path, ".vcf.gz") + "_reheader.vcf.gz"
	of, err := os.Create(outPath)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindTool, err, "unable to create %s", outPath)
	}
	cmd := n.paths.Reheader(newHeaderPath, path, of)
	if _, err := n.runner.Run(ctx, cmd); err != nil {
		of.Close()
		return nil, err
	}
	if err := of.Close(); err != nil {
		return nil, verrors.NewToolError(cmd.String(), 0, "", err)
	}

	indexPath, err := n.Index(ctx, outPath)
	if err != nil {
		return nil, err
	}

	return &RepairResult{
		Changed:   changed,
		VcfPath:   outPath,
		IndexPath: indexPath,
		Orphaned:  []string{path, path + ".tbi", headerPath, newHeaderPath},
	}, nil
}

// RepairSampleColumns rewrites every path-like sample column of a #CHROM
// line to the part after its last '/', returning the number changed.
func RepairSampleColumns(line string) (string, int) {
	cols := strings.Split(line, "\t")
	changed := 0
	for i := 9; i < len(cols); i++ {
		if idx := strings.LastIndex(cols[i], "/"); idx >= 0 {
			cols[i] = cols[i][idx+1:]
			changed++
		}
	}
	return strings.Join(cols, "\t"), changed
}

// IndexedContigs reads a tabix index and lists the sequence names it covers.
func IndexedContigs(indexPath string) ([]string, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := tabix.ReadFrom(f)
	if err != nil {
		return nil, err
	}
	return idx.Names(), nil
}
