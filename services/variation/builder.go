// Package variation assembles the persisted variation record from a
// parsed VCF and writes stored records back out as VCF.
package variation

import (
	"context"
	"fmt"
	"time"

	verrors "variationutil/api/errors"
	objectType "variationutil/api/models/constants/object-type"
	"variationutil/api/models/indexes"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TypeVersion is appended to the stored type of every new record.
const TypeVersion = "1.0"

type (
	// Refs carries the references an import was requested with. Empty
	// optional refs are left out of the record.
	Refs struct {
		AssemblyRef        string
		GenomeRef          string
		SampleAttributeRef string
		SampleSetRef       string
	}

	Builder struct {
		store  objectstore.Store
		logger *zap.Logger
	}
)

func NewBuilder(store objectstore.Store, logger *zap.Logger) *Builder {
	return &Builder{store: store, logger: utils.OrNop(logger)}
}

// BuildContigInfo joins the VCF tallies, in first-seen order, with the
// assembly lengths. A contig without a length means cross-referencing
// was skipped or is broken.
func BuildContigInfo(info *vcf.VcfInfo, lengths map[string]int64) ([]indexes.ContigInfo, error) {
	contigs := make([]indexes.ContigInfo, 0, len(info.ChromosomeIds))
	for _, tally := range info.OrderedContigs() {
		length, ok := lengths[tally.ContigId]
		if !ok {
			return nil, verrors.New(verrors.KindInconsistentData,
				"contig %s has variants but no length in the assembly", tally.ContigId)
		}
		contigs = append(contigs, indexes.ContigInfo{
			ContigId:      tally.ContigId,
			TotalVariants: tally.TotalVariants,
			PassVariants:  tally.PassVariants,
			Length:        length,
		})
	}
	return contigs, nil
}

// UploadVerified uploads path and checks the store's checksum against a
// local one.
func (b *Builder) UploadVerified(ctx context.Context, path string) (indexes.Handle, error) {
	handle, err := b.store.Upload(ctx, path)
	if err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s failed", path)
	}
	if err := objectstore.Verify(path, handle); err != nil {
		return indexes.Handle{}, err
	}
	b.logger.Debug("uploaded", zap.String("path", path), zap.String("id", handle.Id), zap.String("checksum", handle.Checksum))
	return handle, nil
}

// Build uploads the normalized VCF and its index and assembles the
// record. Contig lengths are joined before anything is uploaded.
func (b *Builder) Build(ctx context.Context, info *vcf.VcfInfo, vcfPath, indexPath string, lengths map[string]int64, refs Refs) (*indexes.VariationRecord, error) {
	contigs, err := BuildContigInfo(info, lengths)
	if err != nil {
		return nil, err
	}

	vcfHandle, err := b.UploadVerified(ctx, vcfPath)
	if err != nil {
		return nil, err
	}
	indexHandle, err := b.UploadVerified(ctx, indexPath)
	if err != nil {
		return nil, err
	}

	samples := info.GenotypeIds
	if samples == nil {
		samples = []string{}
	}
	header := info.Header
	if header == nil {
		header = []indexes.HeaderEntry{}
	}

	record := &indexes.VariationRecord{
		NumGenotypes:       len(samples),
		NumVariants:        info.TotalVariants,
		Contigs:            contigs,
		Samples:            samples,
		Header:             header,
		AssemblyRef:        refs.AssemblyRef,
		GenomeRef:          refs.GenomeRef,
		SampleAttributeRef: refs.SampleAttributeRef,
		SampleSetRef:       refs.SampleSetRef,
		VcfHandleRef:       vcfHandle.Id,
		VcfHandle:          vcfHandle,
		VcfIndexHandleRef:  indexHandle.Id,
		VcfIndexHandle:     indexHandle,
	}

	b.logger.Info("built variation record",
		zap.Int("numgenotypes", record.NumGenotypes),
		zap.Int("numvariants", record.NumVariants),
		zap.Int("contigs", len(record.Contigs)))
	return record, nil
}

// NewStoredObject wraps record for persistence. Every import gets a fresh
// object, records are never updated in place.
func NewStoredObject(workspace string, name string, record *indexes.VariationRecord) *indexes.StoredObject {
	return &indexes.StoredObject{
		Ref:       fmt.Sprintf("%s/%s/1", workspace, uuid.New()),
		Type:      fmt.Sprintf("%s-%s", objectType.Variations, TypeVersion),
		Name:      name,
		Workspace: workspace,
		CreatedAt: time.Now().UTC(),
		Data:      *record,
	}
}
