package serviceInfo

import (
	"net/http"

	"variationutil/api/contexts"
	serviceInfo "variationutil/api/models/constants/service-info"

	"github.com/labstack/echo"
)

// Spec: https://github.com/ga4gh-discovery/ga4gh-service-info
func GetServiceInfo(c echo.Context) error {
	cfg := c.(*contexts.VariationContext).Config

	return c.JSON(http.StatusOK, map[string]interface{}{
		"type": map[string]interface{}{
			"artifact": serviceInfo.SERVICE_ARTIFACT,
			"group":    serviceInfo.SERVICE_TYPE_NO_VER,
			"version":  cfg.SemVer,
		},
		"id":          serviceInfo.SERVICE_ID,
		"name":        serviceInfo.SERVICE_NAME,
		"description": serviceInfo.SERVICE_DESCRIPTION,
		"organization": map[string]string{
			"name": "KBase",
			"url":  "https://www.kbase.us",
		},
		"contactUrl": cfg.ServiceContact,
		"version":    cfg.SemVer,
		"features": map[string]interface{}{
			"objectStore":   cfg.ObjectStore.Kind,
			"indexVariants": cfg.Api.IndexVariants,
		},
	})
}
