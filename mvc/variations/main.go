package variations

import (
	"net/http"
	"path/filepath"

	"variationutil/api/contexts"
	"variationutil/api/models/dtos"
	"variationutil/api/models/dtos/errors"
	"variationutil/api/models/ingest"

	"github.com/labstack/echo"
	"go.uber.org/zap"
)

func respondError(c echo.Context, err error) error {
	status, body := errors.FromError(err)
	if status >= http.StatusInternalServerError {
		c.(*contexts.VariationContext).ZapLogger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, body)
}

// VariationsImport queues an import of the staged VCF and returns its
// tracking request.
func VariationsImport(c echo.Context) error {
	vc := c.(*contexts.VariationContext)
	vc.ZapLogger.Debug("VariationsImport hit", zap.String("file", vc.ImportParams.VcfStagingFilePath))

	req, err := vc.IngestionService.Submit(vc.ImportParams)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusAccepted, ingest.ImportResponseDTO{
		Id:       req.Id,
		Filename: req.Filename,
		State:    req.State,
		Message:  "Successfully queued..",
	})
}

func GetAllImportRequests(c echo.Context) error {
	vc := c.(*contexts.VariationContext)

	return c.JSON(http.StatusOK, dtos.ImportRequestsResponseDTO{
		Status:   http.StatusOK,
		Message:  "Success",
		Requests: vc.IngestionService.GetRequests(),
	})
}

func GetImportRequest(c echo.Context) error {
	vc := c.(*contexts.VariationContext)

	id := c.Param("id")
	req, ok := vc.IngestionService.GetRequest(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errors.CreateSimpleNotFound("no import request "+id))
	}
	return c.JSON(http.StatusOK, req)
}

func VariationsGet(c echo.Context) error {
	vc := c.(*contexts.VariationContext)
	ctx := c.Request().Context()

	obj, err := vc.IngestionService.GetVariation(ctx, vc.VariationRef)
	if err != nil {
		return respondError(c, err)
	}

	count, err := vc.IngestionService.CountIndexedVariants(ctx, vc.VariationRef)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.VariationResponseDTO{
		Status:          http.StatusOK,
		Message:         "Success",
		Result:          obj,
		IndexedVariants: count,
	})
}

// VariationsExport sends the stored VCF of a variation as an attachment.
func VariationsExport(c echo.Context) error {
	vc := c.(*contexts.VariationContext)

	path, err := vc.IngestionService.Export(c.Request().Context(), vc.VariationRef)
	if err != nil {
		return respondError(c, err)
	}

	vc.ZapLogger.Info("exporting", zap.String("ref", vc.VariationRef), zap.String("path", path))
	return c.Attachment(path, filepath.Base(path))
}
