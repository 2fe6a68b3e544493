package variations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"variationutil/api/contexts"
	gam "variationutil/api/middleware"
	"variationutil/api/models"
	"variationutil/api/models/dtos"
	"variationutil/api/models/indexes"
	"variationutil/api/models/ingest"
	"variationutil/api/repositories/sqlite"
	"variationutil/api/services"
	"variationutil/api/services/metadata"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/tools"
	"variationutil/api/services/tools/toolstest"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const storedVcf = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"chr1\t10\t.\tA\tT\t50\tPASS\t.\n"

type server struct {
	e       *echo.Echo
	cfg     *models.Config
	svc     *services.IngestionService
	catalog *sqlite.Catalog
	store   *objectstore.LocalStore
}

func newServer(t *testing.T) *server {
	cfg := &models.Config{}
	cfg.Api.ScratchPath = t.TempDir()
	cfg.Api.StagingRoot = t.TempDir()

	store, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	catalog, err := sqlite.Open(filepath.Join(t.TempDir(), "variations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { catalog.Close() })

	svc := services.NewIngestionService(cfg, services.Dependencies{
		Runner:     toolstest.NewRunner(tools.PathsFromConfig(cfg)),
		Catalog:    &metadata.StaticCatalog{AssemblyRef: "1/2/3"},
		Store:      store,
		Repository: catalog,
	}, nil)

	return &server{e: echo.New(), cfg: cfg, svc: svc, catalog: catalog, store: store}
}

func (s *server) serve(target string, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	vc := &contexts.VariationContext{Context: c, Config: s.cfg, ZapLogger: zap.NewNop(), IngestionService: s.svc}
	if err := h(vc); err != nil {
		s.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func (s *server) saveVariation(t *testing.T, ref string, typ string) {
	vcfPath := filepath.Join(t.TempDir(), "variation.vcf.gz")
	require.NoError(t, toolstest.WriteBgzf(vcfPath, storedVcf))
	handle, err := s.store.Upload(context.Background(), vcfPath)
	require.NoError(t, err)

	_, err = s.catalog.Save(context.Background(), &indexes.StoredObject{
		Ref:       ref,
		Type:      typ,
		Name:      "my_variation",
		Workspace: "ws",
		CreatedAt: time.Now().UTC(),
		Data:      indexes.VariationRecord{NumVariants: 1, AssemblyRef: "1/2/3", VcfHandleRef: handle.Id, VcfHandle: handle},
	})
	require.NoError(t, err)
}

func TestVariationsGet(t *testing.T) {
	s := newServer(t)
	s.saveVariation(t, "ws/abc/1", "KBaseGwasData.Variations-1.0")

	rec := s.serve("/variations/get?ref=ws/abc/1", gam.MandateVariationRef(VariationsGet))
	require.Equal(t, http.StatusOK, rec.Code)

	var body dtos.VariationResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "my_variation", body.Result.Name)
	assert.Equal(t, 1, body.Result.Data.NumVariants)
	assert.Equal(t, -1, body.IndexedVariants)

	rec = s.serve("/variations/get?ref=ws/missing/1", gam.MandateVariationRef(VariationsGet))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = s.serve("/variations/get?ref=not-a-ref", gam.MandateVariationRef(VariationsGet))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.serve("/variations/get", gam.MandateVariationRef(VariationsGet))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing ref")
}

func TestVariationsExport(t *testing.T) {
	s := newServer(t)
	s.saveVariation(t, "ws/abc/1", "KBaseGwasData.Variations-1.0")
	s.saveVariation(t, "ws/genome/1", "KBaseGenomes.Genome-17.0")

	rec := s.serve("/variations/export?ref=ws/abc/1", gam.MandateVariationRef(VariationsExport))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storedVcf, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "my_variation.vcf")

	rec = s.serve("/variations/export?ref=ws/genome/1", gam.MandateVariationRef(VariationsExport))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_TYPE")
}

func TestVariationsImport(t *testing.T) {
	s := newServer(t)
	chain := gam.MandateGenomeOrAssemblyRef(gam.MandateVcfStagingFilePath(gam.MandateDestination(gam.CalibrateOptionalSampleSet(VariationsImport))))

	rec := s.serve("/variations/import/run?genomeOrAssemblyRef=1/2/3&vcfStagingFilePath=absent.vcf&workspace=ws&variationObjectName=v", chain)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var queued ingest.ImportResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queued))
	assert.Equal(t, "absent.vcf", queued.Filename)
	assert.Equal(t, ingest.Queued, queued.State)

	// the staged file does not exist, so the import ends in error
	require.Eventually(t, func() bool {
		req, ok := s.svc.GetRequest(queued.Id.String())
		return ok && req.State == ingest.Error
	}, 5*time.Second, 10*time.Millisecond)

	rec = s.serve("/variations/import/requests/"+queued.Id.String(), GetImportRequest, "id", queued.Id.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = s.serve("/variations/import/requests", GetAllImportRequests)
	require.Equal(t, http.StatusOK, rec.Code)
	var all dtos.ImportRequestsResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all.Requests, 1)

	rec = s.serve("/variations/import/requests/nope", GetImportRequest, "id", "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVariationsImportParameters(t *testing.T) {
	s := newServer(t)
	chain := gam.MandateGenomeOrAssemblyRef(gam.MandateVcfStagingFilePath(gam.MandateDestination(gam.CalibrateOptionalSampleSet(VariationsImport))))

	base := "/run?genomeOrAssemblyRef=1/2/3&vcfStagingFilePath=a.vcf"
	cases := []struct {
		target  string
		message string
	}{
		{"/run?vcfStagingFilePath=a.vcf&workspace=ws&variationObjectName=v", "missing genomeOrAssemblyRef"},
		{"/run?genomeOrAssemblyRef=bad&vcfStagingFilePath=a.vcf&workspace=ws&variationObjectName=v", "invalid genomeOrAssemblyRef"},
		{"/run?genomeOrAssemblyRef=1/2/3&vcfStagingFilePath=a.txt&workspace=ws&variationObjectName=v", "invalid vcfStagingFilePath"},
		{base, "missing workspace, variationObjectName"},
		{base + "&workspace=ws&variationObjectName=v&sampleSetRef=ws/set/1", "requires sampleAttributeName"},
		{base + "&workspace=ws&variationObjectName=v&sampleSetRef=x&sampleAttributeName=a", "invalid sampleSetRef"},
	}
	for _, tc := range cases {
		rec := s.serve(tc.target, chain)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.target)
		assert.Contains(t, rec.Body.String(), tc.message, tc.target)
	}

	assert.Empty(t, s.svc.GetRequests())
	entries, err := os.ReadDir(s.cfg.Api.ScratchPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
