// Package samples turns a sample set into the attribute mapping and strain
// list a variation import is validated against.
package samples

import (
	"context"
	"fmt"
	"sort"

	verrors "variationutil/api/errors"
	objectType "variationutil/api/models/constants/object-type"
	"variationutil/api/services/crossref"
	"variationutil/api/services/metadata"
	"variationutil/api/utils"

	"go.uber.org/zap"
)

const SourceSampleService = "SampleService"

type (
	Attribute struct {
		Attribute string `json:"attribute"`
		Source    string `json:"source"`
		Unit      string `json:"unit,omitempty"`
	}

	AttributeMapping struct {
		OntologyMappingMethod string              `json:"ontology_mapping_method"`
		Attributes            []Attribute         `json:"attributes"`
		Instances             map[string][]string `json:"instances"`
	}

	Strain struct {
		Name     string `json:"name"`
		SampleId string `json:"sample_id"`
		Version  int    `json:"version"`
	}

	Service struct {
		registry Registry
		catalog  metadata.Service
		logger   *zap.Logger
	}
)

func NewService(registry Registry, catalog metadata.Service, logger *zap.Logger) *Service {
	return &Service{registry: registry, catalog: catalog, logger: utils.OrNop(logger)}
}

var nodeAttributes = []string{"id", "type", "parent"}

// BuildAttributeMapping lists node attributes first, then every metadata
// key in name order, and keys one instance row per sample name.
func BuildAttributeMapping(samples []*Sample) AttributeMapping {
	am := AttributeMapping{OntologyMappingMethod: SourceSampleService, Instances: map[string][]string{}}
	for _, a := range nodeAttributes {
		am.Attributes = append(am.Attributes, Attribute{Attribute: a, Source: SourceSampleService})
	}

	units := map[string]string{}
	for _, s := range samples {
		for _, n := range s.NodeTree {
			for k, v := range n.MetaControlled {
				if _, ok := units[k]; !ok || v.Units != "" {
					units[k] = v.Units
				}
			}
			for k, v := range n.MetaUser {
				if _, ok := units[k]; !ok || v.Units != "" {
					units[k] = v.Units
				}
			}
		}
	}
	keys := make([]string, 0, len(units))
	for k := range units {
		if k == "id" || k == "type" || k == "parent" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		am.Attributes = append(am.Attributes, Attribute{Attribute: k, Source: SourceSampleService, Unit: units[k]})
	}

	for _, s := range samples {
		var row []string
		for _, n := range s.NodeTree {
			row = append(row, n.Id, n.Type, n.Parent)
			for _, k := range keys {
				v, ok := n.MetaUser[k]
				if !ok {
					v, ok = n.MetaControlled[k]
				}
				if ok && v.Value != nil {
					row = append(row, fmt.Sprint(v.Value))
				} else {
					row = append(row, "")
				}
			}
		}
		am.Instances[s.Name] = row
	}
	return am
}

// MatchStrains pairs every VCF genotype id with its sample, keeping VCF
// order. Duplicated or unknown ids fail with every offender listed.
func MatchStrains(set *metadata.SampleSet, genotypeIds []string) ([]Strain, error) {
	byName := map[string]metadata.SampleRef{}
	for _, s := range set.Samples {
		byName[s.Name] = s
	}

	if dups := crossref.DuplicateIds(genotypeIds); len(dups) > 0 {
		return nil, verrors.NewCrossReferenceError("unique strain ids (duplicated in VCF)", dups)
	}

	var strains []Strain
	var missing []string
	for _, id := range genotypeIds {
		s, ok := byName[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		strains = append(strains, Strain{Name: s.Name, SampleId: s.Id, Version: s.Version})
	}
	if len(missing) > 0 {
		return nil, verrors.NewCrossReferenceError("strains in sample set", missing)
	}
	return strains, nil
}

// SampleSetToAttributeMapping fetches every sample of the set.
func (s *Service) SampleSetToAttributeMapping(ctx context.Context, sampleSetRef string) (*metadata.SampleSet, AttributeMapping, error) {
	set, err := s.catalog.GetSampleSet(ctx, sampleSetRef)
	if err != nil {
		return nil, AttributeMapping{}, err
	}

	fetched := make([]*Sample, 0, len(set.Samples))
	for _, ref := range set.Samples {
		sample, err := s.registry.GetSample(ctx, ref.Id, ref.Version)
		if err != nil {
			return nil, AttributeMapping{}, err
		}
		if sample.Name == "" {
			sample.Name = ref.Name
		}
		fetched = append(fetched, sample)
	}
	return set, BuildAttributeMapping(fetched), nil
}

// InstanceIds lists the sample names the mapping has rows for.
func (am AttributeMapping) InstanceIds() []string {
	ids := make([]string, 0, len(am.Instances))
	for id := range am.Instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ImportStrainInfo checks the genotype ids against the sample set, saves
// the set's attribute mapping as name and returns its reference with the
// matched strains.
func (s *Service) ImportStrainInfo(ctx context.Context, workspace, name string, set *metadata.SampleSet, am AttributeMapping, genotypeIds []string) (string, []Strain, error) {
	if missing := crossref.GenotypesInSamples(genotypeIds, am.InstanceIds()); len(missing) > 0 {
		return "", nil, verrors.NewCrossReferenceError("VCF genotypes in sample attribute mapping", missing)
	}

	strains, err := MatchStrains(set, genotypeIds)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("saving attribute mapping", zap.String("name", name), zap.Int("instances", len(am.Instances)))
	info, err := s.catalog.SaveObject(ctx, workspace, metadata.ObjectSpec{
		Type: objectType.AttributeMapping,
		Name: name,
		Data: am,
	})
	if err != nil {
		return "", nil, err
	}
	return info.Ref, strains, nil
}

// LinkStrains links every strain's sample to the stored variation record.
func (s *Service) LinkStrains(ctx context.Context, strains []Strain, upa string) error {
	for _, st := range strains {
		if err := s.registry.CreateDataLink(ctx, DataLink{
			SampleId: st.SampleId,
			Version:  st.Version,
			Upa:      upa,
			DataId:   st.Name,
			Node:     "root",
		}); err != nil {
			return err
		}
	}
	s.logger.Info("linked samples", zap.Int("count", len(strains)), zap.String("upa", upa))
	return nil
}
