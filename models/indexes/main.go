package indexes

import (
	"encoding/json"
	"time"

	c "variationutil/api/models/constants"
	z "variationutil/api/models/constants/zygosity"
)

// Variant is the per-variant document derived from an imported VCF.
// Samples are only populated when genotype calls were requested.
type Variant struct {
	Chrom  string   `json:"chrom"`
	Pos    int      `json:"pos"`
	Id     string   `json:"id"`
	Ref    string   `json:"ref"`
	Alt    []string `json:"alt"`
	Filter string   `json:"filter"`

	Annotations []Annotation `json:"annotations"`
	Samples     []Sample     `json:"samples,omitempty"`

	VariationRef string    `json:"variationRef"`
	AssemblyRef  string    `json:"assemblyRef"`
	CreatedTime  time.Time `json:"createdTime"`
}

// Annotation is one allow-listed ANN entry of a variant.
type Annotation struct {
	Allele        string `json:"allele"`
	Effect        string `json:"effect"`
	GeneId        string `json:"geneId"`
	TranscriptId  string `json:"transcriptId"`
	BaseChange    string `json:"baseChange"`
	ProteinChange string `json:"proteinChange"`
}

type Sample struct {
	Id        string    `json:"id"`
	Variation Variation `json:"variation"`
}

type Variation struct {
	Genotype Genotype   `json:"genotype"`
	Alleles  AllelePair `json:"alleles"`
}
type AllelePair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type Genotype struct {
	Phased   bool       `json:"phased"`
	Zygosity c.Zygosity `json:"zygosity"`
}

type genotypeJson struct {
	Phased   bool   `json:"phased"`
	Zygosity string `json:"zygosity"`
}

// MarshalJSON writes the zygosity by name, e.g. "HETEROZYGOUS".
func (g Genotype) MarshalJSON() ([]byte, error) {
	return json.Marshal(genotypeJson{Phased: g.Phased, Zygosity: z.ZygosityToString(g.Zygosity)})
}

// UnmarshalJSON accepts the zygosity as a name or as its numeric value.
func (g *Genotype) UnmarshalJSON(b []byte) error {
	var raw struct {
		Phased   bool            `json:"phased"`
		Zygosity json.RawMessage `json:"zygosity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	value := string(raw.Zygosity)
	var name string
	if err := json.Unmarshal(raw.Zygosity, &name); err == nil {
		value = name
	}
	g.Phased = raw.Phased
	g.Zygosity = z.StringOrIntToZygosity(value)
	return nil
}

var MAPPING_FIELDS_KEYWORD_IG256 = map[string]interface{}{
	"keyword": map[string]interface{}{
		"type":         "keyword",
		"ignore_above": 256,
	},
}
var MAPPING_TEXT = map[string]interface{}{"type": "text", "fields": MAPPING_FIELDS_KEYWORD_IG256}
var MAPPING_KEYWORD = map[string]interface{}{"type": "keyword"}
var MAPPING_LONG = map[string]interface{}{"type": "long"}
var MAPPING_BOOL = map[string]interface{}{"type": "boolean"}
var MAPPING_DATE = map[string]interface{}{"type": "date"}
var MAPPING_DISABLED = map[string]interface{}{"type": "object", "enabled": false}

var VARIANT_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"chrom":  MAPPING_TEXT,
		"pos":    MAPPING_LONG,
		"id":     MAPPING_TEXT,
		"ref":    MAPPING_TEXT,
		"alt":    MAPPING_TEXT,
		"filter": MAPPING_TEXT,
		"annotations": map[string]interface{}{
			"properties": map[string]interface{}{
				"allele":        MAPPING_TEXT,
				"effect":        MAPPING_KEYWORD,
				"geneId":        MAPPING_TEXT,
				"transcriptId":  MAPPING_TEXT,
				"baseChange":    MAPPING_TEXT,
				"proteinChange": MAPPING_TEXT,
			},
		},
		"samples": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": MAPPING_TEXT,
				"variation": map[string]interface{}{
					"properties": map[string]interface{}{
						"genotype": map[string]interface{}{
							"properties": map[string]interface{}{
								"phased":   MAPPING_BOOL,
								"zygosity": MAPPING_KEYWORD,
							},
						},
						"alleles": map[string]interface{}{
							"properties": map[string]interface{}{
								"left":  MAPPING_TEXT,
								"right": MAPPING_TEXT,
							},
						},
					},
				},
			},
		},
		"variationRef": MAPPING_KEYWORD,
		"assemblyRef":  MAPPING_KEYWORD,
		"createdTime":  MAPPING_DATE,
	},
}

var VARIATION_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"ref":       MAPPING_KEYWORD,
		"type":      MAPPING_KEYWORD,
		"name":      MAPPING_TEXT,
		"workspace": MAPPING_KEYWORD,
		"createdAt": MAPPING_DATE,
		// header entries carry arbitrary keys
		"data": map[string]interface{}{
			"properties": map[string]interface{}{
				"numgenotypes": MAPPING_LONG,
				"numvariants":  MAPPING_LONG,
				"assembly_ref": MAPPING_KEYWORD,
				"header":       MAPPING_DISABLED,
			},
		},
	},
}
