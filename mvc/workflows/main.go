package workflows

import (
	"net/http"
	"path/filepath"

	"variationutil/api/contexts"
	"variationutil/api/models/dtos/errors"
	w "variationutil/api/workflows"

	"github.com/labstack/echo"
)

func WorkflowsGet(c echo.Context) error {
	return c.JSON(http.StatusOK, w.WORKFLOW_VARIATION_SCHEMA)
}

func WorkflowsServeFile(c echo.Context) error {
	// retrieve wdl from storage and send to client
	fileName := c.Param("file")
	if len(fileName) == 0 || fileName != filepath.Base(fileName) {
		return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Invalid Request! Please only specify a filename; example : /workflows/vcf_import.wdl"))
	}
	cfg := c.(*contexts.VariationContext).Config
	return c.File(filepath.Join(cfg.Api.ModuleRoot, "workflows", fileName))
}
