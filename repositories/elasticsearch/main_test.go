package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
	"variationutil/api/services/vcf"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster answers the handful of endpoints the repositories use.
type fakeCluster struct {
	mu      sync.Mutex
	indices map[string]bool
	docs    map[string]json.RawMessage
	counts  map[string]int
	creates []string
}

func newFakeCluster(t *testing.T) (*fakeCluster, *elasticsearch.Client) {
	f := &fakeCluster{indices: map[string]bool{}, docs: map[string]json.RawMessage{}, counts: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return f, es
}

func (f *fakeCluster) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/":
		fmt.Fprint(w, `{"version":{"number":"7.17.7","build_flavor":"default"},"tagline":"You Know, for Search"}`)

	case r.Method == http.MethodHead && len(parts) == 1:
		if !f.indices[parts[0]] {
			w.WriteHeader(http.StatusNotFound)
		}

	case r.Method == http.MethodPut && len(parts) == 1:
		f.indices[parts[0]] = true
		f.creates = append(f.creates, parts[0])
		fmt.Fprint(w, `{"acknowledged":true}`)

	case len(parts) == 3 && parts[1] == "_doc":
		if _, ok := f.docs[parts[2]]; ok && r.URL.Query().Get("op_type") == "create" {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"error":{"type":"version_conflict_engine_exception"},"status":409}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.docs[parts[2]] = body
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"_id":%q,"result":"created"}`, parts[2])

	case len(parts) == 2 && parts[1] == "_search":
		var q struct {
			Query struct {
				Bool struct {
					Filter []struct {
						Term map[string]string `json:"term"`
					} `json:"filter"`
				} `json:"bool"`
			} `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&q)
		ref := q.Query.Bool.Filter[0].Term["ref"]
		doc, ok := f.docs[documentId(ref)]
		if !ok {
			fmt.Fprint(w, `{"hits":{"total":{"value":0},"hits":[]}}`)
			return
		}
		fmt.Fprintf(w, `{"hits":{"total":{"value":1},"hits":[{"_source":%s}]}}`, doc)

	case len(parts) == 2 && parts[1] == "_bulk":
		var items []string
		failed := false
		scanner := bufio.NewScanner(r.Body)
		for n := 0; scanner.Scan(); n++ {
			line := scanner.Text()
			if n%2 == 0 || line == "" {
				continue
			}
			if strings.Contains(line, `"chrom":"bad"`) {
				items = append(items, `{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad chrom"}}}`)
				failed = true
				continue
			}
			f.counts[parts[0]]++
			items = append(items, `{"index":{"status":201,"result":"created"}}`)
		}
		fmt.Fprintf(w, `{"took":1,"errors":%t,"items":[%s]}`, failed, strings.Join(items, ","))

	case len(parts) == 2 && parts[1] == "_count":
		if !f.indices[parts[0]] {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"index_not_found_exception"}}`)
			return
		}
		fmt.Fprintf(w, `{"count":%d}`, f.counts[parts[0]])

	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":{"type":"unexpected","reason":%q}}`, r.Method+" "+r.URL.Path)
	}
}

type sliceSource struct {
	records []*vcf.Record
}

func (s *sliceSource) Next() (*vcf.Record, error) {
	if len(s.records) == 0 {
		return nil, io.EOF
	}
	rec := s.records[0]
	s.records = s.records[1:]
	return rec, nil
}

func record(chrom string, pos int) *vcf.Record {
	return &vcf.Record{Locus: vcf.Locus{Chrom: chrom, Pos: pos}, Id: ".", Ref: "A", Alts: []string{"T"}, Filter: "PASS"}
}

func TestVariationRepository(t *testing.T) {
	ctx := context.Background()
	cluster, es := newFakeCluster(t)

	repo, err := NewVariationRepository(ctx, es, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{VariationsIndex}, cluster.creates)

	obj := &indexes.StoredObject{
		Ref:       "ws/abc/1",
		Type:      "KBaseGwasData.Variations-1.0",
		Name:      "my_variation",
		Workspace: "ws",
		Data: indexes.VariationRecord{
			NumGenotypes: 1,
			NumVariants:  3,
			Samples:      []string{"S1"},
			AssemblyRef:  "1/2/3",
		},
	}
	ref, err := repo.Save(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, "ws/abc/1", ref)

	got, err := repo.Get(ctx, "ws/abc/1")
	require.NoError(t, err)
	assert.Equal(t, "my_variation", got.Name)
	assert.Equal(t, 3, got.Data.NumVariants)
	assert.Equal(t, []string{"S1"}, got.Data.Samples)

	_, err = repo.Get(ctx, "ws/nope/1")
	assert.ErrorIs(t, err, verrors.ErrNotFound)

	// refs are immutable
	renamed := *obj
	renamed.Name = "other"
	_, err = repo.Save(ctx, &renamed)
	assert.ErrorIs(t, err, verrors.ErrStorage)
	got, err = repo.Get(ctx, "ws/abc/1")
	require.NoError(t, err)
	assert.Equal(t, "my_variation", got.Name)

	// the index exists now, reopening does not recreate it
	_, err = NewVariationRepository(ctx, es, nil)
	require.NoError(t, err)
	assert.Len(t, cluster.creates, 1)
}

func TestVariantIndexer(t *testing.T) {
	ctx := context.Background()
	_, es := newFakeCluster(t)
	indexer := NewVariantIndexer(es, 1, nil)

	assert.Equal(t, "variants-ws-abc-1", VariantsIndexName("ws/abc/1"))

	stats, err := indexer.IndexVariants(ctx, "ws/abc/1", "1/2/3",
		&sliceSource{records: []*vcf.Record{record("chr1", 1), record("chr1", 2), record("chr2", 3)}})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.Indexed)
	assert.Equal(t, uint64(0), stats.Failed)

	count, err := indexer.CountVariants(ctx, "ws/abc/1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = indexer.CountVariants(ctx, "ws/never/1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	stats, err = indexer.IndexVariants(ctx, "ws/def/1", "1/2/3",
		&sliceSource{records: []*vcf.Record{record("chr1", 1), record("bad", 2)}})
	assert.ErrorIs(t, err, verrors.ErrStorage)
	require.NotNil(t, stats)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestToVariant(t *testing.T) {
	v := ToVariant(record("chr1", 7), "ws/abc/1", "1/2/3", time.Time{})
	assert.Equal(t, "chr1", v.Chrom)
	assert.Equal(t, 7, v.Pos)
	assert.Equal(t, []string{"T"}, v.Alt)
	assert.NotNil(t, v.Annotations)
	assert.Nil(t, v.Samples)
}
