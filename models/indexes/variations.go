package indexes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type ContigInfo struct {
	ContigId      string `json:"contig_id"`
	TotalVariants int    `json:"totalvariants"`
	PassVariants  int    `json:"passvariants"`
	Length        int64  `json:"length"`
}

// Handle identifies a file held by the object store.
type Handle struct {
	Id           string `json:"id"`
	FileName     string `json:"file_name"`
	Type         string `json:"type"`
	Url          string `json:"url,omitempty"`
	Checksum     string `json:"checksum"`
	ChecksumType string `json:"checksum_type"`
}

// VariationRecord is the persisted description of one imported VCF.
// Optional references are omitted rather than left empty.
type VariationRecord struct {
	NumGenotypes       int           `json:"numgenotypes"`
	NumVariants        int           `json:"numvariants"`
	Contigs            []ContigInfo  `json:"contigs"`
	Samples            []string      `json:"samples"`
	Header             []HeaderEntry `json:"header"`
	AssemblyRef        string        `json:"assembly_ref"`
	GenomeRef          string        `json:"genome_ref,omitempty"`
	SampleAttributeRef string        `json:"sample_attribute_ref,omitempty"`
	SampleSetRef       string        `json:"sample_set_ref,omitempty"`
	VcfHandleRef       string        `json:"vcf_handle_ref"`
	VcfHandle          Handle        `json:"vcf_handle"`
	VcfIndexHandleRef  string        `json:"vcf_index_handle_ref"`
	VcfIndexHandle     Handle        `json:"vcf_index_handle"`
}

// StoredObject is a typed, named record as kept by a record repository.
type StoredObject struct {
	Ref       string          `json:"ref"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Workspace string          `json:"workspace"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      VariationRecord `json:"data"`
}

type HeaderField struct {
	Key   string
	Value string
}

// HeaderEntry is one INFO, FORMAT or FILTER meta line. Fields keep the
// order they were declared in.
type HeaderEntry struct {
	Category string
	Fields   []HeaderField
}

func (h HeaderEntry) Get(key string) (string, bool) {
	for _, f := range h.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// MarshalJSON flattens the entry to {"Category": ..., key: value, ...}.
func (h HeaderEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"Category":`)
	cat, err := json.Marshal(h.Category)
	if err != nil {
		return nil, err
	}
	buf.Write(cat)

	for _, f := range h.Fields {
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *HeaderEntry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("header entry: expected object, got %v", tok)
	}

	h.Category = ""
	h.Fields = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value := fmt.Sprint(raw)
		if s, ok := raw.(string); ok {
			value = s
		}

		if key == "Category" {
			h.Category = value
			continue
		}
		h.Fields = append(h.Fields, HeaderField{Key: key, Value: value})
	}
	_, err = dec.Token()
	return err
}
