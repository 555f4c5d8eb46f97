package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"structmap/internal/core/errors"
	"structmap/internal/output"
	"structmap/internal/output/viewmodel"
	"structmap/internal/shared/util"
)

// PreviewFileName is the view model file name served by the preview server.
const PreviewFileName = "module-structure.json"

// Artifacts lists the files written for one build.
type Artifacts struct {
	JSON     string
	DOT      string
	Mermaid  string
	Markdown string
}

// WriteOutputs writes the view model to jsonPath, replacing any existing
// file, plus the configured diagram exports. The directory of jsonPath must
// already exist.
func (a *App) WriteOutputs(res *Result, jsonPath string) (Artifacts, error) {
	var out Artifacts
	if res == nil || res.ViewModel == nil {
		return out, errors.New(errors.CodeInternal, "no build result to write")
	}

	payload, err := viewmodel.Marshal(res.ViewModel, a.Config.Output.Pretty)
	if err != nil {
		return out, errors.Wrap(err, errors.CodeInternal, "encode view model")
	}
	if err := replaceFile(jsonPath, payload); err != nil {
		return out, err
	}
	out.JSON = jsonPath

	if path := strings.TrimSpace(a.Config.Output.DOT); path != "" {
		dot, err := output.NewDOTGenerator(res.ViewModel).Generate()
		if err != nil {
			return out, errors.Wrap(err, errors.CodeInternal, "render dot")
		}
		if err := writeArtifact(path, dot); err != nil {
			return out, err
		}
		out.DOT = path
	}
	if path := strings.TrimSpace(a.Config.Output.Mermaid); path != "" {
		mmd, err := output.NewMermaidGenerator(res.ViewModel).Generate()
		if err != nil {
			return out, errors.Wrap(err, errors.CodeInternal, "render mermaid")
		}
		if err := writeArtifact(path, mmd); err != nil {
			return out, err
		}
		out.Mermaid = path
	}

	if path := strings.TrimSpace(a.Config.Output.Markdown); path != "" {
		md, err := output.NewMarkdownGenerator(res.ViewModel).Generate(output.MarkdownOptions{
			ProjectName:    filepath.Base(a.Root),
			GeneratedAt:    res.BuiltAt,
			RunID:          res.RunID,
			IncludeMermaid: true,
		})
		if err != nil {
			return out, errors.Wrap(err, errors.CodeInternal, "render markdown")
		}
		if err := writeArtifact(path, md); err != nil {
			return out, err
		}
		out.Markdown = path
	}

	slog.Debug("outputs written", "run_id", res.RunID, "json", out.JSON, "dot", out.DOT, "mermaid", out.Mermaid, "markdown", out.Markdown)
	return out, nil
}

// TempOutputPath creates a fresh temporary directory for a preview run.
func TempOutputPath() (string, func(), error) {
	dir, err := os.MkdirTemp("", "structmap-*")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeIO, "create temporary output directory")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	return filepath.Join(dir, PreviewFileName), cleanup, nil
}

// replaceFile writes data next to path and renames it into place, so readers
// never observe a partial file.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.AddContext(errors.New(errors.CodeValidationError, "output directory does not exist"), errors.CtxPath, dir)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return errors.AddContext(errors.New(errors.CodeValidationError, "output path is a directory"), errors.CtxPath, path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "create output file"), errors.CtxPath, path)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write output file"), errors.CtxPath, path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "close output file"), errors.CtxPath, path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "chmod output file"), errors.CtxPath, path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "replace output file"), errors.CtxPath, path)
	}
	return nil
}

func writeArtifact(path, content string) error {
	if err := util.WriteFileWithDirs(path, []byte(content), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write artifact"), errors.CtxPath, path)
	}
	return nil
}
