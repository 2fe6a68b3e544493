package metadata

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	verrors "variationutil/api/errors"
	objectType "variationutil/api/models/constants/object-type"
)

// StaticCatalog serves a single assembly read from a chrom-sizes file
// (<contig>\t<length> per line). It backs offline imports, which carry
// no genome and no sample metadata.
type StaticCatalog struct {
	AssemblyRef string
	Contigs     []Contig
	GffPath     string
}

func LoadChromSizes(path string, assemblyRef string) (*StaticCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindNotFound, err, "%s does not exist", path)
	}
	defer f.Close()

	cat := &StaticCatalog{AssemblyRef: assemblyRef}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Fields(text)
		if len(cols) < 2 {
			return nil, verrors.New(verrors.KindFormat, "%s line %d: expected <contig> <length>", path, line)
		}
		length, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, verrors.Wrap(verrors.KindFormat, err, "%s line %d: bad length", path, line)
		}
		cat.Contigs = append(cat.Contigs, Contig{ContigId: cols[0], Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}
	return cat, nil
}

func (s *StaticCatalog) GetObjectInfo(_ context.Context, ref string) (ObjectInfo, error) {
	if ref != s.AssemblyRef {
		return ObjectInfo{}, verrors.New(verrors.KindNotFound, "object %s not found", ref)
	}
	return ObjectInfo{Ref: ref, Name: ref, Type: string(objectType.Assembly)}, nil
}

func (s *StaticCatalog) GetGenomeAssemblyRef(_ context.Context, genomeRef string) (string, error) {
	return "", verrors.New(verrors.KindNotFound, "genome %s not found", genomeRef)
}

func (s *StaticCatalog) GetContigs(_ context.Context, assemblyRef string) ([]Contig, error) {
	if assemblyRef != s.AssemblyRef {
		return nil, verrors.New(verrors.KindNotFound, "assembly %s not found", assemblyRef)
	}
	return s.Contigs, nil
}

func (s *StaticCatalog) GetSampleInstances(_ context.Context, ref string) (map[string][]string, error) {
	return nil, verrors.New(verrors.KindNotFound, "attribute mapping %s not found", ref)
}

func (s *StaticCatalog) GetSampleSet(_ context.Context, ref string) (*SampleSet, error) {
	return nil, verrors.New(verrors.KindNotFound, "sample set %s not found", ref)
}

func (s *StaticCatalog) SaveObject(_ context.Context, _ string, obj ObjectSpec) (ObjectInfo, error) {
	return ObjectInfo{}, verrors.New(verrors.KindUnsupportedType, "cannot save %s objects offline", obj.Type)
}

func (s *StaticCatalog) GenomeToGff(_ context.Context, genomeRef string, dest string) error {
	if s.GffPath == "" {
		return verrors.New(verrors.KindNotFound, "no GFF for %s", genomeRef)
	}
	return copyFile(s.GffPath, dest)
}
