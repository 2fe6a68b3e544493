package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"
	"variationutil/api/utils"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// DrsStore registers files with a DRS server through its private ingest
// endpoint. The server reads the file from the bridge directory, a volume
// both sides share.
type DrsStore struct {
	url             string
	username        string
	password        string
	bridgeDirectory string

	Client      *http.Client
	MaxAttempts uint64
	RetryWait   time.Duration

	logger *zap.Logger
}

func NewDrsStore(url, username, password, bridgeDirectory string, logger *zap.Logger) *DrsStore {
	return &DrsStore{
		url:             url,
		username:        username,
		password:        password,
		bridgeDirectory: bridgeDirectory,
		Client:          &http.Client{},
		MaxAttempts:     5,
		RetryWait:       3 * time.Second,
		logger:          utils.OrNop(logger),
	}
}

func (d *DrsStore) Upload(ctx context.Context, path string) (indexes.Handle, error) {
	name := filepath.Base(path)

	ingestPath := path
	if d.bridgeDirectory != "" {
		ingestPath = filepath.Join(d.bridgeDirectory, name)
		if err := copyFile(path, ingestPath, nil); err != nil {
			return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "unable to copy %s to the DRS bridge directory", name)
		}
		defer os.Remove(ingestPath)
	}

	payload, _ := json.Marshal(map[string]string{"path": ingestPath})

	var body []byte
	attempt := 0
	upload := func() error {
		attempt++
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url+"/private/ingest", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.SetBasicAuth(d.username, d.password)
		r.Header.Add("Content-Type", "application/json")

		resp, err := d.Client.Do(r)
		if err != nil {
			d.logger.Warn("upload to DRS failed", zap.String("file", name), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusCreated:
			body = respBody
			return readErr
		case resp.StatusCode == http.StatusUnauthorized:
			// no point retrying
			return backoff.Permanent(fmt.Errorf("DRS responded 401 Unauthorized"))
		default:
			d.logger.Warn("unsuccessful DRS upload attempt",
				zap.String("file", name), zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode), zap.ByteString("response", respBody))
			return fmt.Errorf("DRS responded %d: %s", resp.StatusCode, respBody)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(d.RetryWait), d.MaxAttempts), ctx)
	if err := backoff.Retry(upload, policy); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			err = perm.Err
		}
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s to DRS failed after %d attempts", name, attempt)
	}

	handle, err := ParseDrsObject(body)
	if err != nil {
		return indexes.Handle{}, err
	}
	handle.FileName = name
	d.logger.Info("uploaded to DRS", zap.String("file", name), zap.String("id", handle.Id))
	return handle, nil
}

// ParseDrsObject reads the id, checksum and access url of a DRS object.
// sha-256 is preferred when several checksums are listed.
func ParseDrsObject(body []byte) (indexes.Handle, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "unparseable DRS response")
	}

	id, _ := parsed.Path("id").Data().(string)
	if id == "" {
		return indexes.Handle{}, verrors.New(verrors.KindStorage, "DRS response carries no object id")
	}
	handle := indexes.Handle{Id: id, Type: KindDrs}
	handle.FileName, _ = parsed.Path("name").Data().(string)

	checksums, _ := parsed.Path("checksums").Children()
	for _, c := range checksums {
		sum, _ := c.Path("checksum").Data().(string)
		algo, _ := c.Path("type").Data().(string)
		if sum == "" {
			continue
		}
		if handle.Checksum == "" || algo == ChecksumSha256 {
			handle.Checksum, handle.ChecksumType = sum, algo
		}
	}

	methods, _ := parsed.Path("access_methods").Children()
	for _, m := range methods {
		if u, ok := m.Path("access_url.url").Data().(string); ok {
			handle.Url = u
			break
		}
	}
	return handle, nil
}

func (d *DrsStore) Download(ctx context.Context, handleId string, dest string) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/objects/%s/download", d.url, handleId), nil)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "bad DRS download request")
	}
	r.SetBasicAuth(d.username, d.password)

	resp, err := d.Client.Do(r)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "download of %s from DRS failed", handleId)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return verrors.New(verrors.KindNotFound, "DRS object %s not found", handleId)
	default:
		return verrors.New(verrors.KindStorage, "download of %s from DRS responded %d", handleId, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", filepath.Dir(dest))
	}
	f, err := os.Create(dest)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", dest)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return verrors.Wrap(verrors.KindStorage, err, "download of %s from DRS failed", handleId)
	}
	return f.Close()
}
