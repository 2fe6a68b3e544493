package samples

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/utils"

	"github.com/Jeffail/gabs"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type (
	MetaValue struct {
		Value interface{} `json:"value" mapstructure:"value"`
		Units string      `json:"units,omitempty" mapstructure:"units"`
	}

	Node struct {
		Id             string               `json:"id" mapstructure:"id"`
		Type           string               `json:"type" mapstructure:"type"`
		Parent         string               `json:"parent" mapstructure:"parent"`
		MetaControlled map[string]MetaValue `json:"meta_controlled" mapstructure:"meta_controlled"`
		MetaUser       map[string]MetaValue `json:"meta_user" mapstructure:"meta_user"`
	}

	Sample struct {
		Id       string `json:"id,omitempty" mapstructure:"id"`
		Name     string `json:"name" mapstructure:"name"`
		NodeTree []Node `json:"node_tree" mapstructure:"node_tree"`
		Version  int    `json:"version,omitempty" mapstructure:"version"`
	}

	// Registry is the part of the sample service the importer uses.
	Registry interface {
		GetSample(ctx context.Context, id string, version int) (*Sample, error)
		CreateSample(ctx context.Context, sample *Sample, priorVersion int) (string, error)
		CreateDataLink(ctx context.Context, link DataLink) error
	}

	DataLink struct {
		SampleId string `json:"id"`
		Version  int    `json:"version"`
		Upa      string `json:"upa"`
		DataId   string `json:"dataid,omitempty"`
		Node     string `json:"node"`
	}

	// Client calls the SampleService over JSON-RPC 1.1.
	Client struct {
		url    string
		token  string
		Client *http.Client
		logger *zap.Logger
	}
)

func NewClient(url string, token string, logger *zap.Logger) *Client {
	return &Client{url: url, token: token, Client: &http.Client{Timeout: time.Minute}, logger: utils.OrNop(logger)}
}

func (c *Client) call(ctx context.Context, method string, param interface{}) (*gabs.Container, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"method":  "SampleService." + method,
		"id":      uuid.New().String(),
		"params":  []interface{}{param},
		"version": "1.1",
	})
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", c.token)

	resp, err := c.Client.Do(r)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "error from SampleService %s", method)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "error from SampleService %s", method)
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, verrors.New(verrors.KindStorage, "error from SampleService %s - %s", method, string(body))
	}
	if e := parsed.Path("error"); e.Data() != nil {
		c.logger.Warn("SampleService error", zap.String("method", method), zap.String("error", e.String()))
		return nil, verrors.New(verrors.KindStorage, "error from SampleService %s - %s", method, e.String())
	}
	return parsed, nil
}

func (c *Client) GetSample(ctx context.Context, id string, version int) (*Sample, error) {
	params := map[string]interface{}{"id": id}
	if version > 0 {
		params["version"] = version
	}
	parsed, err := c.call(ctx, "get_sample", params)
	if err != nil {
		return nil, err
	}

	var sample Sample
	if err := mapstructure.Decode(parsed.Path("result").Index(0).Data(), &sample); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "malformed sample %s", id)
	}
	return &sample, nil
}

func (c *Client) CreateSample(ctx context.Context, sample *Sample, priorVersion int) (string, error) {
	params := map[string]interface{}{"sample": sample, "prior_version": nil}
	if priorVersion > 0 {
		params["prior_version"] = priorVersion
	}
	parsed, err := c.call(ctx, "create_sample", params)
	if err != nil {
		return "", err
	}
	id, _ := parsed.Path("result").Index(0).Path("id").Data().(string)
	if id == "" {
		return "", verrors.New(verrors.KindStorage, "SampleService create_sample returned no id")
	}
	return id, nil
}

func (c *Client) CreateDataLink(ctx context.Context, link DataLink) error {
	if link.Node == "" {
		link.Node = "root"
	}
	_, err := c.call(ctx, "create_data_link", link)
	return err
}
