package staging

import (
	"os"
	"path/filepath"
	"strings"

	verrors "variationutil/api/errors"
	"variationutil/api/models"
)

// Resolver maps user supplied paths onto local files. Paths under the
// module root are taken verbatim, everything else is relative to the
// staging root.
type Resolver struct {
	ModuleRoot  string
	StagingRoot string
}

func NewResolver(cfg *models.Config) *Resolver {
	return &Resolver{
		ModuleRoot:  cfg.Api.ModuleRoot,
		StagingRoot: cfg.Api.StagingRoot,
	}
}

func (r *Resolver) Resolve(raw string) (string, error) {
	root := r.StagingRoot
	resolved := filepath.Join(root, raw)
	if r.ModuleRoot != "" && strings.HasPrefix(raw, r.ModuleRoot) {
		root = r.ModuleRoot
		resolved = filepath.Clean(raw)
	}
	if rel, err := filepath.Rel(root, resolved); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", verrors.New(verrors.KindFormat, "staged path %s leaves %s", raw, root)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", verrors.Wrap(verrors.KindNotFound, err, "staged file %s not found", resolved)
	}
	if info.IsDir() {
		return "", verrors.New(verrors.KindNotFound, "staged path %s is a directory", resolved)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", verrors.Wrap(verrors.KindNotFound, err, "staged file %s is not readable", resolved)
	}
	f.Close()

	return resolved, nil
}
