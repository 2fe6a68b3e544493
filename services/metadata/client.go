package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/utils"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Client speaks JSON-RPC 1.1 to the catalog. Reads are retried with an
// exponential backoff; writes are not.
type Client struct {
	url    string
	token  string
	Client *http.Client

	MaxRetries     uint64
	InitialBackoff time.Duration

	logger *zap.Logger
}

func NewClient(url string, token string, logger *zap.Logger) *Client {
	return &Client{
		url:            url,
		token:          token,
		Client:         &http.Client{Timeout: 5 * time.Minute},
		MaxRetries:     4,
		InitialBackoff: 500 * time.Millisecond,
		logger:         utils.OrNop(logger),
	}
}

type rpcRequest struct {
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Version string        `json:"version"`
	Id      string        `json:"id"`
}

func (c *Client) call(ctx context.Context, method string, param interface{}, retry bool) ([]byte, *gabs.Container, error) {
	payload, err := json.Marshal(rpcRequest{Method: method, Params: []interface{}{param}, Version: "1.1", Id: uuid.New().String()})
	if err != nil {
		return nil, nil, err
	}

	var body []byte
	op := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			r.Header.Set("Authorization", c.token)
		}

		resp, err := c.Client.Do(r)
		if err != nil {
			c.logger.Warn("catalog request failed", zap.String("method", method), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
			return fmt.Errorf("%s responded %d", method, resp.StatusCode)
		}
		return nil
	}

	if retry {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.InitialBackoff
		err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx))
	} else {
		err = op()
	}
	if err != nil {
		return nil, nil, verrors.Wrap(verrors.KindStorage, err, "%s failed", method)
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, nil, verrors.Wrap(verrors.KindStorage, err, "unparseable %s response", method)
	}
	if rpcErr := parsed.Path("error"); rpcErr.Data() != nil {
		msg, _ := rpcErr.Path("message").Data().(string)
		if msg == "" {
			msg = rpcErr.String()
		}
		return nil, nil, verrors.New(verrors.KindNotFound, "%s: %s", method, msg).
			WithDetails(map[string]interface{}{"method": method})
	}
	return body, parsed, nil
}

func (c *Client) getData(ctx context.Context, ref string, included ...string) (*gabs.Container, []byte, error) {
	object := map[string]interface{}{"ref": ref}
	if len(included) > 0 {
		object["included"] = included
	}
	body, parsed, err := c.call(ctx, "Workspace.get_objects2", map[string]interface{}{
		"objects": []interface{}{object},
	}, true)
	if err != nil {
		return nil, nil, err
	}

	objects, _ := parsed.Path("result").Index(0).Path("data").Children()
	if len(objects) == 0 {
		return nil, nil, verrors.New(verrors.KindNotFound, "object %s not found", ref)
	}
	return objects[0].Path("data"), body, nil
}

func (c *Client) GetObjectInfo(ctx context.Context, ref string) (ObjectInfo, error) {
	_, parsed, err := c.call(ctx, "Workspace.get_object_info3", map[string]interface{}{
		"objects": []interface{}{map[string]string{"ref": ref}},
	}, true)
	if err != nil {
		return ObjectInfo{}, err
	}

	infos, _ := parsed.Path("result").Index(0).Path("infos").Children()
	if len(infos) == 0 {
		return ObjectInfo{}, verrors.New(verrors.KindNotFound, "object %s not found", ref)
	}
	return parseInfoTuple(infos[0])
}

// parseInfoTuple reads the positional object info:
// [objid, name, type, save_date, version, saved_by, wsid, workspace, ...].
func parseInfoTuple(info *gabs.Container) (ObjectInfo, error) {
	fields, err := info.Children()
	if err != nil || len(fields) < 8 {
		return ObjectInfo{}, verrors.New(verrors.KindStorage, "malformed object info %s", info.String())
	}
	num := func(i int) string {
		if f, ok := fields[i].Data().(float64); ok {
			return strconv.FormatInt(int64(f), 10)
		}
		return fmt.Sprint(fields[i].Data())
	}
	str := func(i int) string {
		s, _ := fields[i].Data().(string)
		return s
	}
	return ObjectInfo{
		Ref:       num(6) + "/" + num(0) + "/" + num(4),
		Name:      str(1),
		Type:      str(2),
		Workspace: str(7),
	}, nil
}

func (c *Client) GetGenomeAssemblyRef(ctx context.Context, genomeRef string) (string, error) {
	data, _, err := c.getData(ctx, genomeRef, "/assembly_ref")
	if err != nil {
		return "", err
	}
	ref, _ := data.Path("assembly_ref").Data().(string)
	if ref == "" {
		return "", verrors.New(verrors.KindNotFound, "genome %s has no assembly_ref", genomeRef)
	}
	return ref, nil
}

func (c *Client) GetContigs(ctx context.Context, assemblyRef string) ([]Contig, error) {
	_, body, err := c.getData(ctx, assemblyRef, "/contigs")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result []struct {
			Data []struct {
				Data struct {
					Contigs json.RawMessage `json:"contigs"`
				} `json:"data"`
			} `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Result) == 0 || len(envelope.Result[0].Data) == 0 {
		return nil, verrors.New(verrors.KindStorage, "malformed contigs of %s", assemblyRef)
	}
	return decodeOrderedContigs(envelope.Result[0].Data[0].Data.Contigs)
}

// decodeOrderedContigs walks the contigs object token by token so the
// declared order survives; map decoding would lose it.
func decodeOrderedContigs(raw json.RawMessage) ([]Contig, error) {
	if len(raw) == 0 {
		return nil, verrors.New(verrors.KindNotFound, "assembly has no contigs")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, verrors.New(verrors.KindStorage, "contigs is not an object")
	}

	var contigs []Contig
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, verrors.Wrap(verrors.KindStorage, err, "malformed contigs")
		}
		key, _ := tok.(string)

		var value map[string]interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, verrors.Wrap(verrors.KindStorage, err, "malformed contig %s", key)
		}

		var contig Contig
		if err := mapstructure.Decode(value, &contig); err != nil {
			return nil, verrors.Wrap(verrors.KindStorage, err, "malformed contig %s", key)
		}
		if contig.ContigId == "" {
			contig.ContigId = key
		}
		contigs = append(contigs, contig)
	}
	return contigs, nil
}

func (c *Client) GetSampleInstances(ctx context.Context, attributeMappingRef string) (map[string][]string, error) {
	data, _, err := c.getData(ctx, attributeMappingRef, "/instances")
	if err != nil {
		return nil, err
	}

	instances := map[string][]string{}
	if err := mapstructure.Decode(data.Path("instances").Data(), &instances); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "malformed instances of %s", attributeMappingRef)
	}
	return instances, nil
}

func (c *Client) GetSampleSet(ctx context.Context, sampleSetRef string) (*SampleSet, error) {
	data, _, err := c.getData(ctx, sampleSetRef)
	if err != nil {
		return nil, err
	}

	var set SampleSet
	if err := mapstructure.Decode(data.Data(), &set); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "malformed sample set %s", sampleSetRef)
	}
	return &set, nil
}

func (c *Client) SaveObject(ctx context.Context, workspace string, obj ObjectSpec) (ObjectInfo, error) {
	params := map[string]interface{}{
		"objects": []interface{}{map[string]interface{}{
			"type": string(obj.Type),
			"name": obj.Name,
			"data": obj.Data,
		}},
	}
	if id, err := strconv.Atoi(workspace); err == nil {
		params["id"] = id
	} else {
		params["workspace"] = workspace
	}

	_, parsed, err := c.call(ctx, "Workspace.save_objects", params, false)
	if err != nil {
		return ObjectInfo{}, err
	}
	return parseInfoTuple(parsed.Path("result").Index(0).Index(0))
}

// GenomeToGff asks the catalog to export the genome's features as GFF3
// and copies the produced file to dest.
func (c *Client) GenomeToGff(ctx context.Context, genomeRef string, dest string) error {
	_, parsed, err := c.call(ctx, "GenomeFileUtil.genome_to_gff", map[string]interface{}{
		"genome_ref": genomeRef,
	}, false)
	if err != nil {
		return err
	}

	src, _ := parsed.Path("result").Index(0).Path("file_path").Data().(string)
	if src == "" {
		return verrors.New(verrors.KindNotFound, "no GFF produced for %s", genomeRef)
	}
	if err := copyFile(src, dest); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to copy GFF of %s", genomeRef)
	}
	return nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
