package tools

import (
	"io"

	"variationutil/api/models"
)

const (
	PresetVcf = "vcf"
	PresetGff = "gff"
)

// Paths locates the external binaries. Argument order of every builder
// below is fixed; outputs are reproducible only if it stays that way.
type Paths struct {
	Bgzip            string
	Tabix            string
	ValidatorModern  string
	ValidatorLegacy  string
	BedGraphToBigWig string
}

func PathsFromConfig(cfg *models.Config) Paths {
	return Paths{
		Bgzip:            cfg.Tools.Bgzip,
		Tabix:            cfg.Tools.Tabix,
		ValidatorModern:  cfg.Tools.ValidatorModern,
		ValidatorLegacy:  cfg.Tools.ValidatorLegacy,
		BedGraphToBigWig: cfg.Tools.BedGraphToBigWig,
	}
}

// Compress block-gzips src into dst.
func (p Paths) Compress(src io.Reader, dst io.Writer) Command {
	return Command{Name: p.Bgzip, Args: []string{"-c"}, Stdin: src, Stdout: dst}
}

// Index builds <path>.tbi for a block-gzipped file of the given preset.
func (p Paths) Index(preset string, path string) Command {
	return Command{Name: p.Tabix, Args: []string{"-p", preset, path}}
}

func (p Paths) DumpHeader(path string, dst io.Writer) Command {
	return Command{Name: p.Tabix, Args: []string{"-H", path}, Stdout: dst}
}

// Reheader swaps the header of path for the one in headerPath without
// recompressing the body.
func (p Paths) Reheader(headerPath string, path string, dst io.Writer) Command {
	return Command{Name: p.Tabix, Args: []string{"-r", headerPath, path}, Stdout: dst}
}

func (p Paths) ValidateModern(path string, reportDir string) Command {
	return Command{Name: p.ValidatorModern, Args: []string{"-i", path, "-l", "error", "-o", reportDir}}
}

func (p Paths) ValidateLegacy(path string) Command {
	return Command{Name: p.ValidatorLegacy, Args: []string{path}}
}

func (p Paths) ToBigWig(sortedBedGraph string, chromSizes string, out string) Command {
	return Command{Name: p.BedGraphToBigWig, Args: []string{sortedBedGraph, chromSizes, out}}
}
