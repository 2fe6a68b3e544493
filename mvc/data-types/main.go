package dataTypes

import (
	"net/http"

	"variationutil/api/contexts"
	"variationutil/api/models/ingest"

	"github.com/labstack/echo"
)

var VARIATION_SCHEMA = map[string]interface{}{
	"$id":         "variationutil:variation",
	"description": "A VCF stored as a variation object",
	"type":        "object",
	"required":    []string{"numgenotypes", "numvariants", "contigs", "assembly_ref", "vcf_handle_ref"},
	"properties": map[string]interface{}{
		"numgenotypes":   map[string]interface{}{"type": "integer"},
		"numvariants":    map[string]interface{}{"type": "integer"},
		"samples":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"assembly_ref":   map[string]interface{}{"type": "string"},
		"genome_ref":     map[string]interface{}{"type": "string"},
		"vcf_handle_ref": map[string]interface{}{"type": "string"},
		"contigs": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"contig_id", "length", "totalvariants", "passvariants"},
			},
		},
	},
}

func variationDataType(c echo.Context) map[string]interface{} {
	requests := c.(*contexts.VariationContext).IngestionService.GetRequests()

	count := 0
	lastIngested := ""
	for _, r := range requests {
		if r.State != ingest.Done {
			continue
		}
		count++
		if r.UpdatedAt > lastIngested {
			lastIngested = r.UpdatedAt
		}
	}

	return map[string]interface{}{
		"id":            "variation",
		"label":         "Variations",
		"queryable":     false,
		"schema":        VARIATION_SCHEMA,
		"count":         count,
		"last_ingested": lastIngested,
	}
}

func GetDataTypes(c echo.Context) error {
	return c.JSON(http.StatusOK, []map[string]interface{}{
		variationDataType(c),
	})
}

func GetVariationDataType(c echo.Context) error {
	return c.JSON(http.StatusOK, variationDataType(c))
}

func GetVariationDataTypeSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, VARIATION_SCHEMA)
}
