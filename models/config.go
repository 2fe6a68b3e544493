package models

type Config struct {
	Debug          bool   `yaml:"debug" envconfig:"VARIATION_DEBUG"`
	SemVer         string `yaml:"semver" envconfig:"VARIATION_SEMVER" default:"0.1.0"`
	ServiceContact string `yaml:"serviceContact" envconfig:"VARIATION_SERVICE_CONTACT"`

	Api struct {
		Url                    string `yaml:"url" envconfig:"VARIATION_PUBLIC_URL"`
		Port                   string `yaml:"port" envconfig:"VARIATION_API_INTERNAL_PORT" default:"5000"`
		ScratchPath            string `yaml:"scratchPath" envconfig:"VARIATION_API_SCRATCH_PATH" default:"/kb/module/work/tmp"`
		ModuleRoot             string `yaml:"moduleRoot" envconfig:"VARIATION_API_MODULE_ROOT" default:"/kb/module"`
		StagingRoot            string `yaml:"stagingRoot" envconfig:"VARIATION_API_STAGING_ROOT" default:"/staging"`
		ImportConcurrencyLevel int    `yaml:"importConcurrencyLevel" envconfig:"VARIATION_API_IMPORT_CONCURRENCY_LEVEL" default:"2"`
		DensityBinSize         int    `yaml:"densityBinSize" envconfig:"VARIATION_API_DENSITY_BIN_SIZE" default:"10000"`
		CallsSizeThreshold     int64  `yaml:"callsSizeThreshold" envconfig:"VARIATION_API_CALLS_SIZE_THRESHOLD" default:"10485760"`
		IndexVariants          bool   `yaml:"indexVariants" envconfig:"VARIATION_API_INDEX_VARIANTS"`
		SessionMaxAgeHours     int    `yaml:"sessionMaxAgeHours" envconfig:"VARIATION_API_SESSION_MAX_AGE_HOURS" default:"48"`
	} `yaml:"api"`

	Tools struct {
		Bgzip            string `yaml:"bgzip" envconfig:"VARIATION_TOOLS_BGZIP" default:"bgzip"`
		Tabix            string `yaml:"tabix" envconfig:"VARIATION_TOOLS_TABIX" default:"tabix"`
		ValidatorModern  string `yaml:"validatorModern" envconfig:"VARIATION_TOOLS_VALIDATOR_MODERN" default:"vcf_validator_linux"`
		ValidatorLegacy  string `yaml:"validatorLegacy" envconfig:"VARIATION_TOOLS_VALIDATOR_LEGACY" default:"vcf-validator"`
		BedGraphToBigWig string `yaml:"bedGraphToBigWig" envconfig:"VARIATION_TOOLS_BEDGRAPH_TO_BIGWIG" default:"bedGraphToBigWig"`
	} `yaml:"tools"`

	Browser struct {
		TemplatePath   string `yaml:"templatePath" envconfig:"VARIATION_BROWSER_TEMPLATE_PATH" default:"/kb/module/deps/jbrowse"`
		FileServiceUrl string `yaml:"fileServiceUrl" envconfig:"VARIATION_BROWSER_FILE_SERVICE_URL"`
	} `yaml:"browser"`

	ObjectStore struct {
		Kind      string `yaml:"kind" envconfig:"VARIATION_OBJECT_STORE_KIND" default:"drs"`
		LocalPath string `yaml:"localPath" envconfig:"VARIATION_OBJECT_STORE_LOCAL_PATH" default:"/kb/module/work/store"`
	} `yaml:"objectStore"`

	Drs struct {
		Url             string `yaml:"url" envconfig:"VARIATION_DRS_URL"`
		Username        string `yaml:"username" envconfig:"VARIATION_DRS_BASIC_AUTH_USERNAME"`
		Password        string `yaml:"password" envconfig:"VARIATION_DRS_BASIC_AUTH_PASSWORD"`
		BridgeDirectory string `yaml:"bridgeDirectory" envconfig:"VARIATION_DRS_BRIDGE_DIR"`
	} `yaml:"drs"`

	S3 struct {
		Bucket       string `yaml:"bucket" envconfig:"VARIATION_S3_BUCKET"`
		Region       string `yaml:"region" envconfig:"VARIATION_S3_REGION" default:"us-east-1"`
		Endpoint     string `yaml:"endpoint" envconfig:"VARIATION_S3_ENDPOINT"`
		UsePathStyle bool   `yaml:"usePathStyle" envconfig:"VARIATION_S3_USE_PATH_STYLE"`
	} `yaml:"s3"`

	Elasticsearch struct {
		Url      string `yaml:"url" envconfig:"VARIATION_ES_URL"`
		Username string `yaml:"username" envconfig:"VARIATION_ES_USERNAME"`
		Password string `yaml:"password" envconfig:"VARIATION_ES_PASSWORD"`
	} `yaml:"elasticsearch"`

	Metadata struct {
		Url   string `yaml:"url" envconfig:"VARIATION_METADATA_URL"`
		Token string `yaml:"token" envconfig:"VARIATION_METADATA_TOKEN"`
	} `yaml:"metadata"`

	SampleService struct {
		Url   string `yaml:"url" envconfig:"VARIATION_SAMPLE_SERVICE_URL"`
		Token string `yaml:"token" envconfig:"VARIATION_SAMPLE_SERVICE_TOKEN"`
	} `yaml:"sampleService"`

	Catalog struct {
		SqlitePath string `yaml:"sqlitePath" envconfig:"VARIATION_CATALOG_SQLITE_PATH" default:"variations.db"`
	} `yaml:"catalog"`
}
