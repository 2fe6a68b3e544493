package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"variationutil/api/contexts"
	gam "variationutil/api/middleware"
	"variationutil/api/models"
	serviceInfo "variationutil/api/models/constants/service-info"
	dataTypesMvc "variationutil/api/mvc/data-types"
	serviceInfoMvc "variationutil/api/mvc/service-info"
	variationsMvc "variationutil/api/mvc/variations"
	workflowsMvc "variationutil/api/mvc/workflows"
	esRepo "variationutil/api/repositories/elasticsearch"
	"variationutil/api/repositories/sqlite"
	"variationutil/api/services"
	"variationutil/api/services/metadata"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/samples"
	"variationutil/api/services/sanitation"
	"variationutil/api/services/tools"
	"variationutil/api/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"go.uber.org/zap"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	defer logger.Sync()

	logger.Info("using",
		zap.Bool("debug", cfg.Debug),
		zap.String("scratchPath", cfg.Api.ScratchPath),
		zap.String("stagingRoot", cfg.Api.StagingRoot),
		zap.Int("importConcurrencyLevel", cfg.Api.ImportConcurrencyLevel),
		zap.Int("densityBinSize", cfg.Api.DensityBinSize),
		zap.Bool("indexVariants", cfg.Api.IndexVariants),
		zap.String("objectStore", cfg.ObjectStore.Kind),
		zap.String("elasticsearchUrl", cfg.Elasticsearch.Url),
		zap.String("metadataUrl", cfg.Metadata.Url),
		zap.String("sampleServiceUrl", cfg.SampleService.Url),
		zap.String("port", cfg.Api.Port))
	// --

	ctx := context.Background()

	// Instantiate Server
	e := echo.New()

	// Service Connections:
	store, err := objectstore.NewStore(ctx, &cfg, logger.Named("store"))
	if err != nil {
		logger.Fatal("object store", zap.Error(err))
	}

	deps := services.Dependencies{
		Runner:  tools.NewExecRunner(logger.Named("tools")),
		Catalog: metadata.NewClient(cfg.Metadata.Url, cfg.Metadata.Token, logger.Named("metadata")),
		Store:   store,
	}
	if cfg.SampleService.Url != "" {
		registry := samples.NewClient(cfg.SampleService.Url, cfg.SampleService.Token, logger.Named("sampleservice"))
		deps.Samples = samples.NewService(registry, deps.Catalog, logger.Named("samples"))
	}

	// -- Elasticsearch when configured, a local catalog otherwise
	if cfg.Elasticsearch.Url != "" {
		es, err := utils.CreateEsConnection(&cfg, logger.Named("elasticsearch"))
		if err != nil {
			logger.Fatal("elasticsearch", zap.Error(err))
		}
		repository, err := esRepo.NewVariationRepository(ctx, es, logger.Named("variations"))
		if err != nil {
			logger.Fatal("variation repository", zap.Error(err))
		}
		deps.Repository = repository
		deps.Indexer = esRepo.NewVariantIndexer(es, runtime.NumCPU(), logger.Named("variants"))
	} else {
		catalog, err := sqlite.Open(cfg.Catalog.SqlitePath)
		if err != nil {
			logger.Fatal("catalog", zap.Error(err))
		}
		defer catalog.Close()
		deps.Repository = catalog
	}

	// Service Singletons
	iz := services.NewIngestionService(&cfg, deps, logger.Named("ingestion"))
	ss := sanitation.NewSanitationService(&cfg, logger)
	defer ss.Stop()

	// Configure Server
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with the custom context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.VariationContext{
				Context:          c,
				Config:           &cfg,
				ZapLogger:        logger,
				IngestionService: iz,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", serviceInfoMvc.GetServiceInfo)

	// -- Data-Type
	e.GET("/data-types", dataTypesMvc.GetDataTypes)
	e.GET("/data-types/variation", dataTypesMvc.GetVariationDataType)
	e.GET("/data-types/variation/schema", dataTypesMvc.GetVariationDataTypeSchema)

	// -- Variations
	e.GET("/variations/import/run", variationsMvc.VariationsImport,
		// middleware
		gam.MandateGenomeOrAssemblyRef,
		gam.MandateVcfStagingFilePath,
		gam.MandateDestination,
		gam.CalibrateOptionalSampleSet)
	e.GET("/variations/import/requests", variationsMvc.GetAllImportRequests)
	e.GET("/variations/import/requests/:id", variationsMvc.GetImportRequest)

	e.GET("/variations/get", variationsMvc.VariationsGet,
		// middleware
		gam.MandateVariationRef)
	e.GET("/variations/export", variationsMvc.VariationsExport,
		// middleware
		gam.MandateVariationRef)

	// -- Workflows
	e.GET("/workflows", workflowsMvc.WorkflowsGet)
	e.GET("/workflows/:file", workflowsMvc.WorkflowsServeFile)

	// Run
	if err := e.Start(":" + cfg.Api.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
