package objectstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"

	"github.com/google/uuid"
)

// LocalStore keeps each object under <basePath>/<id>/<file name>.
type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "failed to create %s", basePath)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (l *LocalStore) Upload(ctx context.Context, path string) (indexes.Handle, error) {
	if err := ctx.Err(); err != nil {
		return indexes.Handle{}, err
	}

	id := uuid.New().String()
	name := filepath.Base(path)
	dest := filepath.Join(l.basePath, id, name)

	h := md5.New()
	if err := copyFile(path, dest, h); err != nil {
		return indexes.Handle{}, verrors.Wrap(verrors.KindStorage, err, "upload of %s failed", name)
	}

	return indexes.Handle{
		Id:           id,
		FileName:     name,
		Type:         KindLocal,
		Url:          "file://" + dest,
		Checksum:     hex.EncodeToString(h.Sum(nil)),
		ChecksumType: ChecksumMd5,
	}, nil
}

func (l *LocalStore) Download(ctx context.Context, handleId string, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(filepath.Join(l.basePath, filepath.Base(handleId)))
	if err != nil || len(entries) == 0 {
		return verrors.New(verrors.KindNotFound, "object %s not found", handleId)
	}

	src := filepath.Join(l.basePath, filepath.Base(handleId), entries[0].Name())
	if err := copyFile(src, dest, nil); err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "download of %s failed", handleId)
	}
	return nil
}
