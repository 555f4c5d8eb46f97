package app

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"structmap/internal/core/errors"
	"structmap/internal/shared/util"
)

// Discovery is the outcome of walking the root directory.
type Discovery struct {
	Files []string
	// Excluded holds the root-relative paths pruned by exclude patterns;
	// an excluded directory is listed once.
	Excluded []string
}

// Discover walks the root in lexical order and returns every supported,
// non-excluded source file.
func (a *App) Discover(ctx context.Context) (Discovery, error) {
	var out Discovery
	err := filepath.WalkDir(a.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "walk root directory"), errors.CtxPath, path)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, ok := util.RelSlash(a.Root, path)
		if !ok || rel == "." {
			return nil
		}

		if d.IsDir() {
			if a.excludes.Match(rel) {
				out.Excluded = append(out.Excluded, rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !a.extractor.IsSupportedPath(path) {
			return nil
		}
		if a.excludes.Match(rel) {
			out.Excluded = append(out.Excluded, rel)
			return nil
		}
		out.Files = append(out.Files, path)
		return nil
	})
	if err != nil {
		return Discovery{}, err
	}

	slog.Debug("discovery finished", "root", a.Root, "files", len(out.Files), "excluded", len(out.Excluded))
	return out, nil
}
