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
Echo middleware to ensure a valid `ref` HTTP query parameter was provided
*/
func MandateVariationRef(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vc := c.(*contexts.VariationContext)

		ref := c.QueryParam("ref")
		if len(ref) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing ref"))
		}
		if !metadata.IsRef(ref) {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(fmt.Sprintf("invalid ref %s", ref)))
		}

		vc.VariationRef = ref
		return next(vc)
	}
}
