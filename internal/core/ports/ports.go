package ports

import "structmap/internal/engine/parser"

// ImportExtractor reads the static imports declared by one source file.
type ImportExtractor interface {
	ExtractImports(path string, content []byte) ([]parser.RawImport, error)
	GetLanguage(path string) string
	IsSupportedPath(path string) bool
	SupportedExtensions() []string
}

// ModuleResolver turns the raw imports of one file into a module record.
type ModuleResolver interface {
	ResolveAll(path, language string, raw []parser.RawImport) parser.ModuleRecord
}
