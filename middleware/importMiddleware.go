package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"variationutil/api/contexts"
	"variationutil/api/models/dtos/errors"
	"variationutil/api/services/metadata"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a valid `genomeOrAssemblyRef` HTTP query parameter was provided
*/
func MandateGenomeOrAssemblyRef(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vc := c.(*contexts.VariationContext)

		ref := c.QueryParam("genomeOrAssemblyRef")
		if len(ref) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing genomeOrAssemblyRef"))
		}
		if !metadata.IsRef(ref) {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(
				fmt.Sprintf("invalid genomeOrAssemblyRef %s - expected workspace/object[/version]", ref)))
		}

		vc.ImportParams.GenomeOrAssemblyRef = ref
		return next(vc)
	}
}

/*
Echo middleware to ensure a `vcfStagingFilePath` HTTP query parameter naming a VCF was provided
*/
func MandateVcfStagingFilePath(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vc := c.(*contexts.VariationContext)

		path := c.QueryParam("vcfStagingFilePath")
		if len(path) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing vcfStagingFilePath"))
		}
		if !strings.HasSuffix(path, ".vcf") && !strings.HasSuffix(path, ".vcf.gz") {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest(
				fmt.Sprintf("invalid vcfStagingFilePath %s - expected a .vcf or .vcf.gz file", path)))
		}

		vc.ImportParams.VcfStagingFilePath = path
		return next(vc)
	}
}

/*
Echo middleware to ensure the `workspace` and `variationObjectName` HTTP query parameters were provided
*/
func MandateDestination(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		vc := c.(*contexts.VariationContext)

		var missing []string
		workspace := c.QueryParam("workspace")
		if len(workspace) == 0 {
			missing = append(missing, "workspace")
		}
		name := c.QueryParam("variationObjectName")
		if len(name) == 0 {
			missing = append(missing, "variationObjectName")
		}
		if len(missing) > 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("missing "+strings.Join(missing, ", ")))
		}

		vc.ImportParams.Workspace = workspace
		vc.ImportParams.VariationObjectName = name
		return next(vc)
	}
}
