package viewmodel

import (
	"bytes"
	"encoding/json"
	"io"

	"structmap/internal/engine/structure"
)

// SchemaVersion is bumped whenever the JSON shape changes incompatibly.
const SchemaVersion = 1

type ViewModel struct {
	Version  int      `json:"version"`
	Root     NodeView `json:"root"`
	Modules  int      `json:"modules"`
	Packages int      `json:"packages"`
	Excluded []string `json:"excluded,omitempty"`
}

// NodeView is one package or module. Package nodes carry the edges and
// cycles of their child group; module nodes carry their import details.
type NodeView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Level  int    `json:"level"`
	Cyclic bool   `json:"cyclic,omitempty"`
	Parent string `json:"parent,omitempty"`

	Children     []NodeView `json:"children,omitempty"`
	Dependencies []EdgeView `json:"dependencies,omitempty"`
	Cycles       [][]string `json:"cycles,omitempty"`

	Path       string       `json:"path,omitempty"`
	Language   string       `json:"language,omitempty"`
	Imports    []ImportView `json:"imports,omitempty"`
	Unresolved []string     `json:"unresolved,omitempty"`
}

type EdgeView struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Cyclic bool   `json:"cyclic"`
}

// ImportView is a resolved import of a module, with the symbol names it binds.
type ImportView struct {
	Target string   `json:"target"`
	Names  []string `json:"names,omitempty"`
}

// Build projects a leveled tree. Child and edge order is taken from the tree
// as is.
func Build(tree *structure.Tree) *ViewModel {
	vm := &ViewModel{
		Version:  SchemaVersion,
		Modules:  tree.ModuleCount(),
		Packages: tree.PackageCount(),
		Excluded: append([]string(nil), tree.Excluded...),
	}
	vm.Root = packageView(tree, tree.Root)
	return vm
}

func packageView(tree *structure.Tree, pkg *structure.Package) NodeView {
	node := NodeView{
		ID:     pkg.ID,
		Name:   pkg.Name,
		Kind:   string(structure.KindPackage),
		Level:  pkg.Level,
		Cyclic: pkg.Cyclic,
		Parent: pkg.ParentID,
	}
	if len(pkg.Packages)+len(pkg.Modules) > 0 {
		node.Children = make([]NodeView, 0, len(pkg.Packages)+len(pkg.Modules))
	}
	for _, child := range pkg.Packages {
		node.Children = append(node.Children, packageView(tree, child))
	}
	for _, mod := range pkg.Modules {
		node.Children = append(node.Children, moduleView(tree, mod))
	}
	for _, e := range pkg.Dependencies {
		node.Dependencies = append(node.Dependencies, EdgeView{From: e.From, To: e.To, Cyclic: e.Cyclic})
	}
	for _, cycle := range pkg.Cycles {
		node.Cycles = append(node.Cycles, append([]string(nil), cycle...))
	}
	return node
}

func moduleView(tree *structure.Tree, mod *structure.Module) NodeView {
	node := NodeView{
		ID:         mod.ID,
		Name:       mod.SimpleName,
		Kind:       string(structure.KindModule),
		Level:      mod.Level,
		Cyclic:     mod.Cyclic,
		Parent:     mod.PackageID,
		Path:       mod.ID,
		Language:   mod.Language,
		Unresolved: append([]string(nil), mod.Unresolved...),
	}

	index := make(map[string]int)
	for _, imp := range mod.Imports {
		dep, ok := tree.ModuleByPath(imp.Path)
		if !ok || dep == mod {
			continue
		}
		i, seen := index[dep.ID]
		if !seen {
			i = len(node.Imports)
			index[dep.ID] = i
			node.Imports = append(node.Imports, ImportView{Target: dep.ID})
		}
		node.Imports[i].Names = mergeNames(node.Imports[i].Names, imp.Names)
	}
	return node
}

func mergeNames(dst, src []string) []string {
	for _, name := range src {
		found := false
		for _, existing := range dst {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, name)
		}
	}
	return dst
}

// Write encodes vm as JSON, two-space indented when pretty is set.
func Write(w io.Writer, vm *ViewModel, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(vm)
}

func Marshal(vm *ViewModel, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, vm, pretty); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
