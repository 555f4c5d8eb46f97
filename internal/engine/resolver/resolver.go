package resolver

import (
	"path/filepath"
	"strings"

	"structmap/internal/engine/parser"
)

// probeExtensions is the completion order tried after the importer's own extension.
var probeExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// compiledToSource maps emitted extensions to the sources TypeScript projects import them from.
var compiledToSource = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// JavaScriptResolver turns import specifiers into absolute module paths using
// the set of discovered files.
type JavaScriptResolver struct {
	known map[string]bool
}

func NewJavaScriptResolver(knownPaths []string) *JavaScriptResolver {
	known := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		known[filepath.Clean(p)] = true
	}
	return &JavaScriptResolver{known: known}
}

// Resolve returns the absolute target path and whether it names a discovered
// module. Bare package specifiers come back unchanged and unresolved.
func (r *JavaScriptResolver) Resolve(importer, specifier string) (string, bool) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return "", false
	}
	if !IsRelativeSpecifier(specifier) && !filepath.IsAbs(specifier) {
		return specifier, false
	}

	base := filepath.FromSlash(specifier)
	if !filepath.IsAbs(base) {
		base = filepath.Join(filepath.Dir(importer), base)
	}
	base = filepath.Clean(base)

	importerExt := strings.ToLower(filepath.Ext(importer))
	for _, candidate := range r.candidates(base, importerExt) {
		if r.known[candidate] {
			return candidate, true
		}
	}

	if filepath.Ext(base) == "" && importerExt != "" {
		return base + importerExt, false
	}
	return base, false
}

func (r *JavaScriptResolver) candidates(base, importerExt string) []string {
	out := []string{base}

	ext := strings.ToLower(filepath.Ext(base))
	if sources, ok := compiledToSource[ext]; ok {
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		for _, src := range sources {
			out = append(out, stem+src)
		}
	}

	exts := make([]string, 0, len(probeExtensions)+1)
	if importerExt != "" {
		exts = append(exts, importerExt)
	}
	for _, e := range probeExtensions {
		if e != importerExt {
			exts = append(exts, e)
		}
	}
	for _, e := range exts {
		out = append(out, base+e)
	}
	for _, e := range exts {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}

// ResolveAll resolves every raw import of one file into a module record.
func (r *JavaScriptResolver) ResolveAll(path, language string, raw []parser.RawImport) parser.ModuleRecord {
	rec := parser.ModuleRecord{
		Path:     path,
		Language: language,
		Imports:  make([]parser.ModuleImport, 0, len(raw)),
	}
	for _, imp := range raw {
		target, _ := r.Resolve(path, imp.Specifier)
		if target == "" {
			continue
		}
		rec.Imports = append(rec.Imports, parser.ModuleImport{
			Names: append([]string(nil), imp.Names...),
			Path:  target,
			Raw:   imp.Specifier,
		})
	}
	return rec
}

func IsRelativeSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
