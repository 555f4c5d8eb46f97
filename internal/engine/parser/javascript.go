package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// jsImportExtractor collects static imports from JavaScript, TypeScript and
// TSX trees. The three grammars share the node kinds used here.
type jsImportExtractor struct {
	language string
}

func NewJavaScriptExtractor() Extractor { return &jsImportExtractor{language: "javascript"} }

func NewTypeScriptExtractor() Extractor { return &jsImportExtractor{language: "typescript"} }

func NewTSXExtractor() Extractor { return &jsImportExtractor{language: "tsx"} }

func (e *jsImportExtractor) Extract(root *sitter.Node, source []byte, filePath string) ([]RawImport, error) {
	ctx := &ExtractionContext{Source: source, Path: filePath}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement": e.extractImport,
		"export_statement": e.extractReExport,
		"call_expression":  e.extractRequire,
	})
	engine.Walk(ctx, root)
	return ctx.Imports, nil
}

func (e *jsImportExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	// import x = require("y")
	if clause := FirstChildOfKind(node, "import_require_clause"); clause != nil {
		src := clause.ChildByFieldName("source")
		if src == nil {
			src = FirstChildOfKind(clause, "string")
		}
		specifier := trimQuoted(ctx.Text(src))
		if specifier == "" {
			return true
		}
		names := []string{}
		if id := FirstChildOfKind(clause, "identifier"); id != nil {
			names = append(names, ctx.Text(id))
		}
		ctx.Imports = append(ctx.Imports, RawImport{
			Names:     names,
			Specifier: specifier,
			Kind:      ImportRequire,
			Location:  ctx.Location(node),
		})
		return true
	}

	src := node.ChildByFieldName("source")
	if src == nil {
		src = FirstChildOfKind(node, "string")
	}
	specifier := trimQuoted(ctx.Text(src))
	if specifier == "" {
		return true
	}

	kind := ImportSideEffect
	names := []string{}
	if clause := FirstChildOfKind(node, "import_clause"); clause != nil {
		kind = ImportDeclaration
		names = e.importClauseNames(ctx, clause)
	}

	ctx.Imports = append(ctx.Imports, RawImport{
		Names:     names,
		Specifier: specifier,
		Kind:      kind,
		Location:  ctx.Location(node),
	})
	return true
}

// importClauseNames returns the local bindings, i.e. the alias when one is given.
func (e *jsImportExtractor) importClauseNames(ctx *ExtractionContext, clause *sitter.Node) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			names = appendUnique(names, seen, ctx.Text(child))
		case "namespace_import":
			names = appendUnique(names, seen, ctx.Text(FirstChildOfKind(child, "identifier")))
		case "named_imports":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				names = appendUnique(names, seen, ctx.Text(local))
			}
		}
	}
	return names
}

func (e *jsImportExtractor) extractReExport(ctx *ExtractionContext, node *sitter.Node) bool {
	src := node.ChildByFieldName("source")
	if src == nil {
		// Plain export of a declaration; it may still contain require calls.
		return false
	}
	specifier := trimQuoted(ctx.Text(src))
	if specifier == "" {
		return true
	}

	seen := make(map[string]bool)
	names := make([]string, 0)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "*":
			names = appendUnique(names, seen, "*")
		case "namespace_export":
			names = appendUnique(names, seen, ctx.Text(FirstChildOfKind(child, "identifier")))
		case "export_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec == nil || spec.Kind() != "export_specifier" {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				names = appendUnique(names, seen, ctx.Text(local))
			}
		}
	}

	ctx.Imports = append(ctx.Imports, RawImport{
		Names:     names,
		Specifier: specifier,
		Kind:      ImportReExport,
		Location:  ctx.Location(node),
	})
	return true
}

// extractRequire accepts only require("literal"); computed arguments are skipped.
func (e *jsImportExtractor) extractRequire(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || ctx.Text(fn) != "require" {
		return false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 {
		return false
	}
	arg := args.NamedChild(0)
	if arg == nil || arg.Kind() != "string" {
		return false
	}
	specifier := trimQuoted(ctx.Text(arg))
	if specifier == "" {
		return true
	}

	names := []string{}
	if parent := node.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
		if name := parent.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
			names = append(names, strings.TrimSpace(ctx.Text(name)))
		}
	}

	ctx.Imports = append(ctx.Imports, RawImport{
		Names:     names,
		Specifier: specifier,
		Kind:      ImportRequire,
		Location:  ctx.Location(node),
	})
	return true
}
