package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"go.uber.org/zap"
)

type (
	// RecordSource is a single-pass stream of VCF body records.
	RecordSource interface {
		Next() (*vcf.Record, error)
	}

	VariantIndexer struct {
		es         *elasticsearch.Client
		numWorkers int
		logger     *zap.Logger
	}

	IndexStats struct {
		Index   string `json:"index"`
		Indexed uint64 `json:"indexed"`
		Failed  uint64 `json:"failed"`
	}
)

func NewVariantIndexer(es *elasticsearch.Client, numWorkers int, logger *zap.Logger) *VariantIndexer {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &VariantIndexer{es: es, numWorkers: numWorkers, logger: utils.OrNop(logger)}
}

// VariantsIndexName is the per-record index, i.e. "variants-12-3-1".
func VariantsIndexName(variationRef string) string {
	return "variants-" + strings.ToLower(strings.NewReplacer("/", "-", "_", "-", " ", "-").Replace(variationRef))
}

func ToVariant(rec *vcf.Record, variationRef string, assemblyRef string, created time.Time) indexes.Variant {
	annotations := rec.Annotations
	if annotations == nil {
		annotations = []indexes.Annotation{}
	}
	return indexes.Variant{
		Chrom:        rec.Chrom,
		Pos:          rec.Pos,
		Id:           rec.Id,
		Ref:          rec.Ref,
		Alt:          rec.Alts,
		Filter:       rec.Filter,
		Annotations:  annotations,
		Samples:      rec.Calls,
		VariationRef: variationRef,
		AssemblyRef:  assemblyRef,
		CreatedTime:  created,
	}
}

// IndexVariants drains records into the variation's own variants index.
// Any failed document fails the whole run once the indexer is flushed.
func (v *VariantIndexer) IndexVariants(ctx context.Context, variationRef string, assemblyRef string, records RecordSource) (*IndexStats, error) {
	index := VariantsIndexName(variationRef)
	if err := EnsureIndex(ctx, v.es, index, indexes.VARIANT_INDEX_MAPPING); err != nil {
		return nil, err
	}

	var failed uint64
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     v.es,
		Index:      index,
		NumWorkers: v.numWorkers,
	})
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to create bulk indexer")
	}

	created := time.Now().UTC()
	for {
		rec, err := records.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			bi.Close(ctx)
			return nil, err
		}

		data, err := json.Marshal(ToVariant(rec, variationRef, assemblyRef, created))
		if err != nil {
			bi.Close(ctx)
			return nil, err
		}

		addErr := bi.Add(ctx, esutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddUint64(&failed, 1)
				if err != nil {
					v.logger.Warn("variant not indexed", zap.Error(err))
				} else {
					v.logger.Warn("variant not indexed", zap.String("type", res.Error.Type), zap.String("reason", res.Error.Reason))
				}
			},
		})
		if addErr != nil {
			bi.Close(ctx)
			return nil, verrors.Wrap(verrors.KindStorage, addErr, "unable to queue variant %s:%d", rec.Chrom, rec.Pos)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "bulk indexing into %s failed", index)
	}

	stats := bi.Stats()
	out := &IndexStats{Index: index, Indexed: stats.NumIndexed, Failed: atomic.LoadUint64(&failed)}
	v.logger.Info("indexed variants", zap.String("index", index), zap.Uint64("indexed", out.Indexed), zap.Uint64("failed", out.Failed))
	if out.Failed > 0 {
		return out, verrors.New(verrors.KindStorage, "%d variants could not be indexed into %s", out.Failed, index)
	}
	return out, nil
}

// CountVariants reports how many variants of the record are indexed; a
// record that was never indexed has none.
func (v *VariantIndexer) CountVariants(ctx context.Context, variationRef string) (int, error) {
	index := VariantsIndexName(variationRef)
	res, err := v.es.Count(
		v.es.Count.WithContext(ctx),
		v.es.Count.WithIndex(index),
	)
	if err != nil {
		return 0, verrors.Wrap(verrors.KindStorage, err, "unable to count %s", index)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if err := responseError(res, "count "+index); err != nil {
		return 0, err
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, verrors.Wrap(verrors.KindStorage, err, "unable to decode count of %s", index)
	}
	return result.Count, nil
}
