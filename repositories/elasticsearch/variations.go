package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
	"variationutil/api/utils"

	"github.com/elastic/go-elasticsearch/v7"
	"go.uber.org/zap"
)

const VariationsIndex = "variations"

// VariationRepository keeps stored variation records in the variations
// index, one document per ref.
type VariationRepository struct {
	es     *elasticsearch.Client
	logger *zap.Logger
}

func NewVariationRepository(ctx context.Context, es *elasticsearch.Client, logger *zap.Logger) (*VariationRepository, error) {
	if err := EnsureIndex(ctx, es, VariationsIndex, indexes.VARIATION_INDEX_MAPPING); err != nil {
		return nil, err
	}
	return &VariationRepository{es: es, logger: utils.OrNop(logger)}, nil
}

// documentId keeps refs usable in a request path.
func documentId(ref string) string {
	return strings.ReplaceAll(ref, "/", "_")
}

func (r *VariationRepository) Save(ctx context.Context, obj *indexes.StoredObject) (string, error) {
	body, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	res, err := r.es.Index(VariationsIndex, bytes.NewReader(body),
		r.es.Index.WithContext(ctx),
		r.es.Index.WithDocumentID(documentId(obj.Ref)),
		r.es.Index.WithOpType("create"),
		r.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return "", verrors.Wrap(verrors.KindStorage, err, "unable to save %s", obj.Ref)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusConflict {
		return "", verrors.New(verrors.KindStorage, "variation %s already exists", obj.Ref)
	}
	if err := responseError(res, "save "+obj.Ref); err != nil {
		return "", err
	}

	r.logger.Info("saved variation", zap.String("ref", obj.Ref), zap.String("name", obj.Name))
	return obj.Ref, nil
}

func (r *VariationRepository) Get(ctx context.Context, ref string) (*indexes.StoredObject, error) {
	buf, err := encodeQuery(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{{
					"term": map[string]interface{}{
						"ref": ref,
					}},
				},
			},
		},
		"size": 1,
	})
	if err != nil {
		return nil, err
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(VariationsIndex),
		r.es.Search.WithBody(buf),
	)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to look up %s", ref)
	}
	defer res.Body.Close()
	if err := responseError(res, "look up "+ref); err != nil {
		return nil, err
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source indexes.StoredObject `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to decode %s", ref)
	}
	if len(result.Hits.Hits) == 0 {
		return nil, verrors.New(verrors.KindNotFound, "variation %s not found", ref)
	}
	return &result.Hits.Hits[0].Source, nil
}
