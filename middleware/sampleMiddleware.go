package middleware

import (
	"fmt"
	"net/http"

	"variationutil/api/contexts"
	"variationutil/api/models/dtos/errors"
	"variationutil/api/services/metadata"

	"github.com/labstack/echo"
)

/*
Echo middleware to prepare the context for an optionally provided `sampleSetRef`;
a sample set requires a `sampleAttributeName` to save its attribute mapping under
*/
func CalibrateOptionalSampleSet(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vc := c.(*contexts.VariationContext)

		sampleSetRef := c.QueryParam("sampleSetRef")
		if len(sampleSetRef) == 0 {
			return next(vc)
		}
		if !metadata.IsRef(sampleSetRef) {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(
				fmt.Sprintf("invalid sampleSetRef %s", sampleSetRef)))
		}

		name := c.QueryParam("sampleAttributeName")
		if len(name) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("sampleSetRef requires sampleAttributeName"))
		}

		vc.ImportParams.SampleSetRef = sampleSetRef
		vc.ImportParams.SampleAttributeName = name
		return next(vc)
	}
}
