package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	verrors "variationutil/api/errors"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

// EnsureIndex creates index with the given mapping unless it exists.
func EnsureIndex(ctx context.Context, es *elasticsearch.Client, index string, mapping map[string]interface{}) error {
	existsRes, err := es.Indices.Exists([]string{index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to check index %s", index)
	}
	existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"mappings": mapping}); err != nil {
		return err
	}

	res, err := es.Indices.Create(index,
		es.Indices.Create.WithContext(ctx),
		es.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create index %s", index)
	}
	defer res.Body.Close()

	// lost a race with another importer
	if res.StatusCode == http.StatusBadRequest {
		var body map[string]interface{}
		if decodeErr := json.NewDecoder(res.Body).Decode(&body); decodeErr == nil {
			if e, ok := body["error"].(map[string]interface{}); ok && e["type"] == "resource_already_exists_exception" {
				return nil
			}
		}
	}
	return responseError(res, "create index "+index)
}

// responseError turns an error status into a StorageError carrying the
// response body.
func responseError(res *esapi.Response, what string) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	return verrors.New(verrors.KindStorage, "%s failed", what).
		WithDetails(map[string]interface{}{"status": res.StatusCode, "response": string(body)})
}

func encodeQuery(query map[string]interface{}) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}
	return &buf, nil
}
