// Package metadata talks to the object catalog holding genomes,
// assemblies, sample sets and attribute mappings.
package metadata

import (
	"context"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/constants"
	objectType "variationutil/api/models/constants/object-type"
)

type (
	ObjectInfo struct {
		Ref       string `json:"ref"`
		Name      string `json:"name"`
		Type      string `json:"type"`
		Workspace string `json:"workspace"`
	}

	Contig struct {
		ContigId  string  `json:"contig_id" mapstructure:"contig_id"`
		Length    int64   `json:"length" mapstructure:"length"`
		GcContent float64 `json:"gc_content" mapstructure:"gc_content"`
	}

	SampleRef struct {
		Id      string `json:"id" mapstructure:"id"`
		Name    string `json:"name" mapstructure:"name"`
		Version int    `json:"version" mapstructure:"version"`
	}

	SampleSet struct {
		Samples     []SampleRef `json:"samples" mapstructure:"samples"`
		Description string      `json:"description" mapstructure:"description"`
	}

	ObjectSpec struct {
		Type constants.ObjectType
		Name string
		Data interface{}
	}

	// Service is what the import pipeline needs from the catalog.
	Service interface {
		GetObjectInfo(ctx context.Context, ref string) (ObjectInfo, error)
		GetGenomeAssemblyRef(ctx context.Context, genomeRef string) (string, error)
		// GetContigs keeps the order the assembly declares its contigs in.
		GetContigs(ctx context.Context, assemblyRef string) ([]Contig, error)
		GetSampleInstances(ctx context.Context, attributeMappingRef string) (map[string][]string, error)
		GetSampleSet(ctx context.Context, sampleSetRef string) (*SampleSet, error)
		SaveObject(ctx context.Context, workspace string, obj ObjectSpec) (ObjectInfo, error)
		GenomeToGff(ctx context.Context, genomeRef string, dest string) error
	}

	// References resolved from a genome-or-assembly input.
	References struct {
		GenomeRef   string
		AssemblyRef string
	}
)

// ResolveGenomeOrAssembly accepts either a genome, whose assembly is
// looked up, or an assembly.
func ResolveGenomeOrAssembly(ctx context.Context, svc Service, ref string) (References, error) {
	info, err := svc.GetObjectInfo(ctx, ref)
	if err != nil {
		return References{}, err
	}

	switch {
	case objectType.Matches(info.Type, objectType.Genome):
		assemblyRef, err := svc.GetGenomeAssemblyRef(ctx, ref)
		if err != nil {
			return References{}, err
		}
		return References{GenomeRef: ref, AssemblyRef: assemblyRef}, nil
	case objectType.Matches(info.Type, objectType.Assembly):
		return References{AssemblyRef: ref}, nil
	default:
		return References{}, verrors.New(verrors.KindUnsupportedType,
			"%s is a %s, expected a genome or an assembly", ref, info.Type)
	}
}

// ContigIds lists the ids in catalog order.
func ContigIds(contigs []Contig) []string {
	ids := make([]string, 0, len(contigs))
	for _, c := range contigs {
		ids = append(ids, c.ContigId)
	}
	return ids
}

// ContigLengths indexes lengths by contig id.
func ContigLengths(contigs []Contig) map[string]int64 {
	lengths := make(map[string]int64, len(contigs))
	for _, c := range contigs {
		lengths[c.ContigId] = c.Length
	}
	return lengths
}

// IsRef reports whether s looks like a "ws/obj/ver" reference.
func IsRef(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 || len(parts) == 3
}
