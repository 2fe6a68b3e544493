package workflows

type WorkflowSchema map[string]interface{}

var WORKFLOW_VARIATION_SCHEMA WorkflowSchema = map[string]interface{}{
	"ingestion": map[string]interface{}{
		"vcf_import": map[string]interface{}{
			"name":        "VCF Variation Import",
			"description": "This ingestion workflow will normalize, validate and cross-reference a staged VCF, then store it as a variation object with genome-browser tracks.",
			"data_type":   "variation",
			"tags":        []string{"variation", "vcf"},
			"file":        "vcf_import.wdl",
			"type":        "ingestion",
			"inputs": []map[string]interface{}{
				{
					"id":       "workspace",
					"type":     "string",
					"required": true,
				},
				{
					"id":       "variation_object_name",
					"type":     "string",
					"required": true,
				},
				{
					"id":       "genome_or_assembly_ref",
					"type":     "string",
					"required": true,
					"pattern":  "^[^/]+/[^/]+(/[^/]+)?$",
				},
				{
					"id":       "vcf_staging_file_path",
					"type":     "file",
					"required": true,
					"pattern":  "^.*\\.vcf(\\.gz)?$",
				},
				{
					"id":       "sample_set_ref",
					"type":     "string",
					"required": false,
				},
				{
					"id":       "sample_attribute_name",
					"type":     "string",
					"required": false,
				},
				{
					"id":           "variation_url",
					"type":         "service-url",
					"required":     true,
					"injected":     true,
					"service_kind": "variationutil",
				},
			},
		},
	},
	"analysis": map[string]interface{}{},
	"export": map[string]interface{}{
		"vcf_export": map[string]interface{}{
			"name":        "VCF Variation Export",
			"description": "Writes the stored VCF of a variation object.",
			"data_type":   "variation",
			"type":        "export",
			"inputs": []map[string]interface{}{
				{
					"id":       "variation_ref",
					"type":     "string",
					"required": true,
				},
			},
		},
	},
}
