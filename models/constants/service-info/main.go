package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "Variation Import Service"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the Variation Import API!"
	SERVICE_DESCRIPTION ServiceInfo = "Imports VCF variation files, validates them against assembly and sample metadata, and prepares genome-browser tracks."

	SERVICE_ARTIFACT    ServiceInfo = "variationutil"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("org.kbase:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
