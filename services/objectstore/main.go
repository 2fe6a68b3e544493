// Package objectstore uploads pipeline artifacts to the content store and
// fetches them back by handle id.
package objectstore

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
	"variationutil/api/models/indexes"

	"go.uber.org/zap"
)

const (
	ChecksumMd5    = "md5"
	ChecksumSha256 = "sha-256"

	KindDrs   = "drs"
	KindS3    = "s3"
	KindLocal = "local"
)

type Store interface {
	// Upload stores the file at path and returns its handle. The handle's
	// checksum is the one reported by the store.
	Upload(ctx context.Context, path string) (indexes.Handle, error)
	// Download writes the content of handleId to dest.
	Download(ctx context.Context, handleId string, dest string) error
}

// NewStore builds the backend named by cfg.ObjectStore.Kind.
func NewStore(ctx context.Context, cfg *models.Config, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(cfg.ObjectStore.Kind) {
	case KindDrs, "":
		return NewDrsStore(cfg.Drs.Url, cfg.Drs.Username, cfg.Drs.Password, cfg.Drs.BridgeDirectory, logger), nil
	case KindS3:
		return NewS3Store(ctx, cfg.S3.Bucket, S3Options{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	case KindLocal:
		return NewLocalStore(cfg.ObjectStore.LocalPath)
	default:
		return nil, verrors.New(verrors.KindStorage, "unknown object store kind %q", cfg.ObjectStore.Kind)
	}
}

func newHash(algo string) (hash.Hash, error) {
	switch strings.ToLower(algo) {
	case ChecksumMd5:
		return md5.New(), nil
	case ChecksumSha256, "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum type %q", algo)
	}
}

// Checksum returns the hex digest of the file at path.
func Checksum(path string, algo string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the handle's checksum locally. A mismatch or an
// incomplete handle is a StorageError.
func Verify(path string, handle indexes.Handle) error {
	if handle.Id == "" {
		return verrors.New(verrors.KindStorage, "upload of %s returned no handle", filepath.Base(path))
	}
	local, err := Checksum(path, handle.ChecksumType)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to checksum %s", path)
	}
	if !strings.EqualFold(local, handle.Checksum) {
		return verrors.New(verrors.KindStorage, "local %s %s does not match stored %s for %s",
			handle.ChecksumType, local, handle.Checksum, filepath.Base(path))
	}
	return nil
}

func copyFile(src string, dst string, h hash.Hash) error {
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

	var w io.Writer = out
	if h != nil {
		w = io.MultiWriter(out, h)
	}
	if _, err := io.Copy(w, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
