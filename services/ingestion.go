package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
	"variationutil/api/models/indexes"
	"variationutil/api/models/ingest"
	es "variationutil/api/repositories/elasticsearch"
	"variationutil/api/services/crossref"
	"variationutil/api/services/metadata"
	"variationutil/api/services/normalizer"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/samples"
	"variationutil/api/services/staging"
	"variationutil/api/services/tools"
	"variationutil/api/services/tracks"
	"variationutil/api/services/validator"
	"variationutil/api/services/variation"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type (
	VariantIndexer interface {
		IndexVariants(ctx context.Context, variationRef string, assemblyRef string, records es.RecordSource) (*es.IndexStats, error)
		CountVariants(ctx context.Context, variationRef string) (int, error)
	}

	// Dependencies are the collaborators an IngestionService drives.
	// Samples and Indexer are optional.
	Dependencies struct {
		Runner     tools.Runner
		Catalog    metadata.Service
		Samples    *samples.Service
		Store      objectstore.Store
		Repository variation.Repository
		Indexer    VariantIndexer
	}

	ImportParams struct {
		GenomeOrAssemblyRef string `json:"genomeOrAssemblyRef"`
		VcfStagingFilePath  string `json:"vcfStagingFilePath"`
		SampleSetRef        string `json:"sampleSetRef,omitempty"`
		SampleAttributeName string `json:"sampleAttributeName,omitempty"`
		VariationObjectName string `json:"variationObjectName"`
		Workspace           string `json:"workspace"`
	}

	ContigReport struct {
		ContigId      string  `json:"contigId"`
		Length        int64   `json:"length"`
		TotalVariants int     `json:"totalVariants"`
		PassVariants  int     `json:"passVariants"`
		VariantsPerMb float64 `json:"variantsPerMb"`
	}

	ImportReport struct {
		NumGenotypes     int              `json:"numGenotypes"`
		NumVariants      int              `json:"numVariants"`
		Contigs          []ContigReport   `json:"contigs"`
		HeadersRewritten int              `json:"headersRewritten"`
		ValidatorTool    validator.Tool   `json:"validatorTool"`
		ValidatorReport  string           `json:"validatorReport"`
		SessionDir       string           `json:"sessionDir"`
		Browser          *tracks.Result   `json:"browser,omitempty"`
		IndexedVariants  *es.IndexStats   `json:"indexedVariants,omitempty"`
		GenomicIndexes   []indexes.Handle `json:"genomicIndexes"`
	}

	ImportResult struct {
		VariationRef string       `json:"variationRef"`
		Report       ImportReport `json:"report"`
	}

	IngestionService struct {
		cfg    *models.Config
		logger *zap.Logger

		resolver   *staging.Resolver
		Normalizer *normalizer.Normalizer
		validator  *validator.Validator
		catalog    metadata.Service
		samples    *samples.Service
		builder    *variation.Builder
		exporter   *variation.Exporter
		repository variation.Repository
		tracks     *tracks.Builder
		indexer    VariantIndexer

		// bounds concurrent imports; each import is still sequential
		concurrentImports *semaphore.Weighted

		IngestRequestMap    map[string]*ingest.ImportRequest
		IngestRequestMapMux sync.RWMutex
	}
)

func NewIngestionService(cfg *models.Config, deps Dependencies, logger *zap.Logger) *IngestionService {
	logger = utils.OrNop(logger)
	paths := tools.PathsFromConfig(cfg)

	level := cfg.Api.ImportConcurrencyLevel
	if level < 1 {
		level = 1
	}

	return &IngestionService{
		cfg:               cfg,
		logger:            logger,
		resolver:          staging.NewResolver(cfg),
		Normalizer:        normalizer.NewNormalizer(deps.Runner, paths, logger.Named("normalizer")),
		validator:         validator.NewValidator(deps.Runner, paths, logger.Named("validator")),
		catalog:           deps.Catalog,
		samples:           deps.Samples,
		builder:           variation.NewBuilder(deps.Store, logger.Named("builder")),
		exporter:          variation.NewExporter(deps.Repository, deps.Store, logger.Named("export")),
		repository:        deps.Repository,
		tracks:            tracks.NewBuilder(deps.Runner, deps.Store, cfg, logger.Named("tracks")),
		indexer:           deps.Indexer,
		concurrentImports: semaphore.NewWeighted(int64(level)),
		IngestRequestMap:  map[string]*ingest.ImportRequest{},
	}
}

func (p ImportParams) check() error {
	missing := []string{}
	if p.GenomeOrAssemblyRef == "" {
		missing = append(missing, "genomeOrAssemblyRef")
	}
	if p.VcfStagingFilePath == "" {
		missing = append(missing, "vcfStagingFilePath")
	}
	if p.VariationObjectName == "" {
		missing = append(missing, "variationObjectName")
	}
	if p.Workspace == "" {
		missing = append(missing, "workspace")
	}
	if p.SampleSetRef != "" && p.SampleAttributeName == "" {
		missing = append(missing, "sampleAttributeName")
	}
	if len(missing) > 0 {
		return verrors.New(verrors.KindFormat, "missing import parameters: %v", missing)
	}
	return nil
}

// NewSessionDir creates a fresh working directory under the scratch path.
func (i *IngestionService) NewSessionDir() (string, error) {
	dir := filepath.Join(i.cfg.Api.ScratchPath, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", verrors.Wrap(verrors.KindStorage, err, "unable to create session directory %s", dir)
	}
	return dir, nil
}

// Import runs the whole pipeline for one VCF. Nothing is persisted unless
// validation and cross-referencing pass.
func (i *IngestionService) Import(ctx context.Context, params ImportParams) (*ImportResult, error) {
	if err := params.check(); err != nil {
		return nil, err
	}

	sessionDir, err := i.NewSessionDir()
	if err != nil {
		return nil, err
	}
	logger := i.logger.With(zap.String("session", filepath.Base(sessionDir)), zap.String("name", params.VariationObjectName))

	staged, err := i.resolver.Resolve(params.VcfStagingFilePath)
	if err != nil {
		return nil, err
	}

	normalized, err := i.Normalizer.Normalize(ctx, staged, sessionDir)
	if err != nil {
		return nil, err
	}
	logger.Info("normalized", zap.String("vcf", normalized.VcfPath), zap.Int("headersRewritten", normalized.HeadersRewritten))

	validation, err := i.validator.Validate(ctx, normalized.VcfPath, filepath.Join(sessionDir, "validation"))
	if err != nil {
		return nil, err
	}

	info, err := vcf.Parse(normalized.VcfPath)
	if err != nil {
		return nil, err
	}
	logger.Info("parsed",
		zap.String("version", info.Version),
		zap.Int("variants", info.TotalVariants),
		zap.Int("contigs", len(info.ChromosomeIds)),
		zap.Int("genotypes", len(info.GenotypeIds)))

	refs, err := metadata.ResolveGenomeOrAssembly(ctx, i.catalog, params.GenomeOrAssemblyRef)
	if err != nil {
		return nil, err
	}
	contigs, err := i.catalog.GetContigs(ctx, refs.AssemblyRef)
	if err != nil {
		return nil, err
	}

	var (
		sampleSet  *metadata.SampleSet
		attributes samples.AttributeMapping
		sampleIds  []string
	)
	if params.SampleSetRef != "" {
		if i.samples == nil {
			return nil, verrors.New(verrors.KindNotFound, "no sample service configured for sample set %s", params.SampleSetRef)
		}
		if sampleSet, attributes, err = i.samples.SampleSetToAttributeMapping(ctx, params.SampleSetRef); err != nil {
			return nil, err
		}
		sampleIds = attributes.InstanceIds()
	}

	report := crossref.Check(info.ChromosomeIds, metadata.ContigIds(contigs), info.GenotypeIds, sampleIds)
	if !report.Ok() {
		return nil, report.Err()
	}

	var (
		attributeRef string
		strains      []samples.Strain
	)
	if sampleSet != nil {
		if attributeRef, strains, err = i.samples.ImportStrainInfo(ctx, params.Workspace, params.SampleAttributeName, sampleSet, attributes, info.GenotypeIds); err != nil {
			return nil, err
		}
	}

	record, err := i.builder.Build(ctx, info, normalized.VcfPath, normalized.IndexPath, metadata.ContigLengths(contigs), variation.Refs{
		AssemblyRef:        refs.AssemblyRef,
		GenomeRef:          refs.GenomeRef,
		SampleAttributeRef: attributeRef,
		SampleSetRef:       params.SampleSetRef,
	})
	if err != nil {
		return nil, err
	}

	// tracks only need the uploaded handles, so a failure here leaves no record behind
	browser, err := i.buildTracks(ctx, refs, contigs, normalized.VcfPath, record, sessionDir)
	if err != nil {
		logger.Error("browser tracks failed", zap.Error(err))
		return nil, err
	}

	variationRef, err := i.repository.Save(ctx, variation.NewStoredObject(params.Workspace, params.VariationObjectName, record))
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("ref", variationRef))
	logger.Info("saved variation")

	if len(strains) > 0 {
		if err := i.samples.LinkStrains(ctx, strains, variationRef); err != nil {
			return nil, err
		}
	}

	result := &ImportResult{
		VariationRef: variationRef,
		Report: ImportReport{
			NumGenotypes:     record.NumGenotypes,
			NumVariants:      record.NumVariants,
			Contigs:          contigReports(record.Contigs),
			HeadersRewritten: normalized.HeadersRewritten,
			ValidatorTool:    validation.Tool,
			ValidatorReport:  validation.ReportPath,
			SessionDir:       sessionDir,
			GenomicIndexes:   []indexes.Handle{record.VcfHandle, record.VcfIndexHandle},
			Browser:          browser,
		},
	}
	result.Report.GenomicIndexes = append(result.Report.GenomicIndexes, browser.Handles...)

	if i.indexer != nil && i.cfg.Api.IndexVariants {
		stats, err := i.indexVariants(ctx, variationRef, refs.AssemblyRef, normalized.VcfPath, len(info.GenotypeIds))
		if err != nil {
			logger.Error("variant indexing failed", zap.Error(err))
			return nil, err
		}
		result.Report.IndexedVariants = stats
	}

	logger.Info("import done", zap.Int("numvariants", record.NumVariants))
	return result, nil
}

func contigReports(contigs []indexes.ContigInfo) []ContigReport {
	out := make([]ContigReport, 0, len(contigs))
	for _, c := range contigs {
		r := ContigReport{
			ContigId:      c.ContigId,
			Length:        c.Length,
			TotalVariants: c.TotalVariants,
			PassVariants:  c.PassVariants,
		}
		if c.Length > 0 {
			r.VariantsPerMb = float64(c.TotalVariants) / (float64(c.Length) / 1e6)
		}
		out = append(out, r)
	}
	return out
}

func (i *IngestionService) buildTracks(ctx context.Context, refs metadata.References, contigs []metadata.Contig, vcfPath string, record *indexes.VariationRecord, sessionDir string) (*tracks.Result, error) {
	req := tracks.Request{
		Contigs:          contigs,
		VcfPath:          vcfPath,
		VcfHandleId:      record.VcfHandle.Id,
		VcfIndexHandleId: record.VcfIndexHandle.Id,
	}
	if refs.GenomeRef != "" {
		gff := filepath.Join(sessionDir, "genome.gff")
		if err := i.catalog.GenomeToGff(ctx, refs.GenomeRef, gff); err != nil {
			return nil, err
		}
		req.GffPath = gff
	}
	return i.tracks.Build(ctx, req, sessionDir)
}

func (i *IngestionService) indexVariants(ctx context.Context, variationRef string, assemblyRef string, vcfPath string, numSamples int) (*es.IndexStats, error) {
	reader, err := vcf.NewRecordReaderForFile(vcfPath, numSamples, i.cfg.Api.CallsSizeThreshold)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	i.logger.Info("indexing variants", zap.String("ref", variationRef), zap.Bool("calls", reader.IncludesCalls()))
	return i.indexer.IndexVariants(ctx, variationRef, assemblyRef, reader)
}

// Export writes the stored VCF of ref into a fresh session directory.
func (i *IngestionService) Export(ctx context.Context, ref string) (string, error) {
	sessionDir, err := i.NewSessionDir()
	if err != nil {
		return "", err
	}
	return i.exporter.Export(ctx, ref, sessionDir, "")
}

func (i *IngestionService) GetVariation(ctx context.Context, ref string) (*indexes.StoredObject, error) {
	return i.repository.Get(ctx, ref)
}

// CountIndexedVariants is -1 when variant indexing is off.
func (i *IngestionService) CountIndexedVariants(ctx context.Context, ref string) (int, error) {
	if i.indexer == nil || !i.cfg.Api.IndexVariants {
		return -1, nil
	}
	return i.indexer.CountVariants(ctx, ref)
}

// -- request tracking --

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (i *IngestionService) update(req *ingest.ImportRequest, mutate func(r *ingest.ImportRequest)) {
	i.IngestRequestMapMux.Lock()
	defer i.IngestRequestMapMux.Unlock()
	mutate(req)
	req.UpdatedAt = now()
	i.IngestRequestMap[req.Id.String()] = req
}

// FilenameAlreadyRunning reports whether a queued or running import reads
// the same staged file.
func (i *IngestionService) FilenameAlreadyRunning(filename string) bool {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()
	return i.filenameRunning(filename)
}

// filenameRunning expects IngestRequestMapMux to be held.
func (i *IngestionService) filenameRunning(filename string) bool {
	for _, v := range i.IngestRequestMap {
		if v.Filename == filename && (v.State == ingest.Queued || v.State == ingest.Running) {
			return true
		}
	}
	return false
}

// Submit queues an import and returns its tracking request right away. The
// returned copy does not change; poll GetRequest for progress.
func (i *IngestionService) Submit(params ImportParams) (ingest.ImportRequest, error) {
	if err := params.check(); err != nil {
		return ingest.ImportRequest{}, err
	}

	req := &ingest.ImportRequest{
		Id:        uuid.New(),
		Filename:  params.VcfStagingFilePath,
		State:     ingest.Queued,
		CreatedAt: now(),
	}
	req.UpdatedAt = req.CreatedAt

	i.IngestRequestMapMux.Lock()
	if i.filenameRunning(params.VcfStagingFilePath) {
		i.IngestRequestMapMux.Unlock()
		return ingest.ImportRequest{}, verrors.New(verrors.KindFormat, "%s is already being imported", params.VcfStagingFilePath)
	}
	i.IngestRequestMap[req.Id.String()] = req
	queued := *req
	i.IngestRequestMapMux.Unlock()

	i.logger.Info("queued import", zap.String("id", req.Id.String()), zap.String("file", req.Filename))

	go func() {
		ctx := context.Background()
		if err := i.concurrentImports.Acquire(ctx, 1); err != nil {
			i.update(req, func(r *ingest.ImportRequest) {
				r.State = ingest.Error
				r.Message = err.Error()
			})
			return
		}
		defer i.concurrentImports.Release(1)

		i.update(req, func(r *ingest.ImportRequest) { r.State = ingest.Running })

		result, err := i.Import(ctx, params)
		if err != nil {
			i.logger.Error("import failed", zap.String("id", req.Id.String()), zap.Error(err))
			i.update(req, func(r *ingest.ImportRequest) {
				r.State = ingest.Error
				r.Message = err.Error()
			})
			return
		}
		i.update(req, func(r *ingest.ImportRequest) {
			r.State = ingest.Done
			r.Message = fmt.Sprintf("imported %d variants", result.Report.NumVariants)
			r.VariationRef = result.VariationRef
			r.Report = result.Report
		})
	}()

	return queued, nil
}

func (i *IngestionService) GetRequest(id string) (ingest.ImportRequest, bool) {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()
	req, ok := i.IngestRequestMap[id]
	if !ok {
		return ingest.ImportRequest{}, false
	}
	return *req, true
}

// GetRequests lists every tracked import, oldest first.
func (i *IngestionService) GetRequests() []ingest.ImportRequest {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	out := make([]ingest.ImportRequest, 0, len(i.IngestRequestMap))
	for _, v := range i.IngestRequestMap {
		out = append(out, *v)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt < out[b].CreatedAt })
	return out
}
