package contexts

import (
	"variationutil/api/models"
	"variationutil/api/services"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

type (
	// "Helper" Context to pass into routes that need
	//  the import pipeline and other variables
	VariationContext struct {
		echo.Context
		Config           *models.Config
		ZapLogger        *zap.Logger
		IngestionService *services.IngestionService

		// filled in by the parameter middleware
		ImportParams services.ImportParams
		VariationRef string
	}
)
