package parser

// RawImport is one static import statement as written in a source file.
type RawImport struct {
	Names     []string // Local names bound by the statement
	Specifier string   // Module specifier literal, quotes removed
	Kind      ImportKind
	Location  Location
}

type ImportKind int

const (
	ImportDeclaration ImportKind = iota
	ImportSideEffect
	ImportReExport
	ImportRequire
)

func (k ImportKind) String() string {
	switch k {
	case ImportDeclaration:
		return "import"
	case ImportSideEffect:
		return "side_effect"
	case ImportReExport:
		return "re_export"
	case ImportRequire:
		return "require"
	default:
		return "unknown"
	}
}

// ModuleImport is an import whose target has been resolved to a path.
type ModuleImport struct {
	Names []string
	Path  string // Absolute target path, or the bare specifier when unresolvable
	Raw   string
}

// ModuleRecord is the immutable import fact for one source file.
type ModuleRecord struct {
	Path     string // Absolute file path
	Language string
	Imports  []ModuleImport
}

type Location struct {
	File   string
	Line   int
	Column int
}

// CloneRecord returns a deep copy so callers never share import slices.
func CloneRecord(rec ModuleRecord) ModuleRecord {
	c := rec
	c.Imports = make([]ModuleImport, len(rec.Imports))
	for i, imp := range rec.Imports {
		c.Imports[i] = ModuleImport{
			Names: append([]string(nil), imp.Names...),
			Path:  imp.Path,
			Raw:   imp.Raw,
		}
	}
	return c
}
