package variation

import (
	"context"
	"io"
	"os"
	"path/filepath"

	verrors "variationutil/api/errors"
	objectType "variationutil/api/models/constants/object-type"
	"variationutil/api/models/indexes"
	"variationutil/api/services/objectstore"
	"variationutil/api/services/vcf"
	"variationutil/api/utils"

	"go.uber.org/zap"
)

// Repository persists variation records as typed, named objects.
type Repository interface {
	Save(ctx context.Context, obj *indexes.StoredObject) (string, error)
	Get(ctx context.Context, ref string) (*indexes.StoredObject, error)
}

type Exporter struct {
	repository Repository
	store      objectstore.Store
	logger     *zap.Logger
}

func NewExporter(repository Repository, store objectstore.Store, logger *zap.Logger) *Exporter {
	return &Exporter{repository: repository, store: store, logger: utils.OrNop(logger)}
}

// Export writes the stored VCF of ref, uncompressed, to
// destDir/<filename or object name>.vcf and returns that path.
func (e *Exporter) Export(ctx context.Context, ref string, destDir string, filename string) (string, error) {
	obj, err := e.repository.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	if !objectType.Matches(obj.Type, objectType.Variations) {
		return "", verrors.New(verrors.KindUnsupportedType,
			"cannot write %s as VCF: stored type is %s, only %s is supported", ref, obj.Type, objectType.Variations)
	}

	if filename == "" {
		filename = obj.Name + ".vcf"
	}
	out := filepath.Join(destDir, filepath.Base(filename))

	compressed := out + ".download.gz"
	if err := e.store.Download(ctx, obj.Data.VcfHandleRef, compressed); err != nil {
		return "", err
	}
	defer os.Remove(compressed)

	if err := uncompress(compressed, out); err != nil {
		os.Remove(out)
		return "", err
	}

	e.logger.Info("exported variation", zap.String("ref", ref), zap.String("path", out))
	return out, nil
}

func uncompress(src string, dst string) error {
	r, err := vcf.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(dst)
	if err != nil {
		return verrors.Wrap(verrors.KindStorage, err, "unable to create %s", dst)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return verrors.Wrap(verrors.KindFormat, err, "unable to uncompress %s", src)
	}
	return f.Close()
}
