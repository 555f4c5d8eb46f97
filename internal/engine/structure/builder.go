package structure

import (
	"path"
	"path/filepath"
	"strings"

	"structmap/internal/core/errors"
	"structmap/internal/engine/parser"
	"structmap/internal/shared/util"
)

// Options configures one tree build. Root must be an absolute directory.
type Options struct {
	Root     string
	Excludes []string
}

// Tree is the package hierarchy plus the indexes used to build it. The
// indexes own nothing; every node is owned by its parent package.
type Tree struct {
	Root     *Package
	RootPath string
	Excluded []string

	packages map[string]*Package // package ID -> node
	modules  map[string]*Module  // module ID -> node
	byPath   map[string]*Module  // absolute path -> node
}

// Build groups records into a package tree, drops excluded modules together
// with every import of or from them, and rolls module imports up into
// group-local edges. Levels are left at zero; see graph.LevelizeTree.
func Build(opts Options, records []parser.ModuleRecord) (*Tree, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" || !filepath.IsAbs(root) {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "root must be an absolute path"), errors.CtxPath, opts.Root)
	}
	root = filepath.Clean(root)

	matcher, err := util.CompilePathMatcher(opts.Excludes)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile exclude patterns")
	}

	t := &Tree{
		RootPath: root,
		packages: make(map[string]*Package),
		modules:  make(map[string]*Module),
		byPath:   make(map[string]*Module),
	}
	t.Root = &Package{ID: RootID, Name: filepath.Base(root), Path: root}
	t.packages[RootID] = t.Root

	excluded := make(map[string]bool)
	for i := range records {
		rec := records[i]
		abs := filepath.Clean(rec.Path)
		rel, ok := util.RelSlash(root, abs)
		if !ok || rel == "." {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "module is outside the root directory"), errors.CtxPath, rec.Path)
		}
		if matcher.Match(rel) {
			excluded[abs] = true
			t.Excluded = append(t.Excluded, rel)
			continue
		}
		if _, dup := t.byPath[abs]; dup {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "duplicate module path"), errors.CtxPath, rec.Path)
		}
		t.insert(rel, parser.CloneRecord(rec), abs)
	}

	t.linkImports(func(target string) bool {
		if excluded[target] {
			return true
		}
		rel, inside := util.RelSlash(root, target)
		return inside && matcher.Match(rel)
	})
	t.rollup()
	return t, nil
}

func (t *Tree) insert(rel string, rec parser.ModuleRecord, abs string) {
	pkg := t.ensurePackage(path.Dir(rel))
	mod := &Module{
		ID:         rel,
		Path:       abs,
		Name:       rel,
		SimpleName: path.Base(rel),
		PackageID:  pkg.ID,
		Language:   rec.Language,
		Imports:    rec.Imports,
	}
	pkg.Modules = append(pkg.Modules, mod)
	t.modules[mod.ID] = mod
	t.byPath[abs] = mod
}

// ensurePackage walks the segments of dir, creating each package the first
// time its path is seen.
func (t *Tree) ensurePackage(dir string) *Package {
	if dir == "." || dir == "" {
		return t.Root
	}
	if pkg, ok := t.packages[dir]; ok {
		return pkg
	}
	parent := t.ensurePackage(path.Dir(dir))
	pkg := &Package{
		ID:       dir,
		Name:     path.Base(dir),
		Path:     filepath.Join(t.RootPath, filepath.FromSlash(dir)),
		ParentID: parent.ID,
	}
	parent.Packages = append(parent.Packages, pkg)
	t.packages[dir] = pkg
	return pkg
}

// linkImports drops imports of excluded targets and resolves the rest
// against the module index; misses are recorded as unresolved.
func (t *Tree) linkImports(isExcluded func(string) bool) {
	t.Walk(func(pkg *Package) {
		for _, mod := range pkg.Modules {
			kept := mod.Imports[:0]
			seen := make(map[string]bool)
			for _, imp := range mod.Imports {
				target := imp.Path
				if filepath.IsAbs(target) {
					target = filepath.Clean(target)
				}
				if filepath.IsAbs(target) && isExcluded(target) {
					continue
				}
				kept = append(kept, imp)

				dep, ok := t.byPath[target]
				if !ok {
					mod.Unresolved = append(mod.Unresolved, imp.Raw)
					continue
				}
				if dep == mod || seen[dep.ID] {
					continue
				}
				seen[dep.ID] = true
				mod.Dependencies = append(mod.Dependencies, dep.ID)
			}
			mod.Imports = kept
		}
	})
}

// rollup adds every module dependency to the group of the endpoints' lowest
// common ancestor, projecting each endpoint onto that ancestor's direct child.
func (t *Tree) rollup() {
	t.Walk(func(pkg *Package) {
		for _, mod := range pkg.Modules {
			for _, depID := range mod.Dependencies {
				dep := t.modules[depID]
				group, from, to := t.project(mod, dep)
				group.addEdge(from, to)
			}
		}
	})
}

func (t *Tree) project(a, b *Module) (*Package, string, string) {
	segA := packageSegments(a.PackageID)
	segB := packageSegments(b.PackageID)

	common := 0
	for common < len(segA) && common < len(segB) && segA[common] == segB[common] {
		common++
	}

	group := t.packages[joinSegments(segA[:common])]
	return group, projectedID(a, segA, common), projectedID(b, segB, common)
}

func projectedID(m *Module, segments []string, depth int) string {
	if len(segments) == depth {
		return m.ID
	}
	return joinSegments(segments[:depth+1])
}

func packageSegments(id string) []string {
	if id == RootID || id == "" {
		return nil
	}
	return strings.Split(id, "/")
}

func joinSegments(segments []string) string {
	if len(segments) == 0 {
		return RootID
	}
	return strings.Join(segments, "/")
}

// Walk visits every package in pre-order, children in tree order.
func (t *Tree) Walk(fn func(*Package)) {
	var visit func(*Package)
	visit = func(p *Package) {
		fn(p)
		for _, child := range p.Packages {
			visit(child)
		}
	}
	visit(t.Root)
}

func (t *Tree) Package(id string) (*Package, bool) {
	p, ok := t.packages[id]
	return p, ok
}

func (t *Tree) Module(id string) (*Module, bool) {
	m, ok := t.modules[id]
	return m, ok
}

func (t *Tree) ModuleByPath(abs string) (*Module, bool) {
	m, ok := t.byPath[filepath.Clean(abs)]
	return m, ok
}

// SetLevel records the level and cycle membership of a package or module.
// It reports false when id names neither.
func (t *Tree) SetLevel(id string, level int, cyclic bool) bool {
	if p, ok := t.packages[id]; ok {
		p.Level = level
		p.Cyclic = cyclic
		return true
	}
	if m, ok := t.modules[id]; ok {
		m.Level = level
		m.Cyclic = cyclic
		return true
	}
	return false
}

func (t *Tree) ModuleCount() int  { return len(t.modules) }
func (t *Tree) PackageCount() int { return len(t.packages) }

func (t *Tree) EdgeCount() int {
	n := 0
	t.Walk(func(p *Package) { n += len(p.Dependencies) })
	return n
}

func (t *Tree) UnresolvedCount() int {
	n := 0
	for _, m := range t.modules {
		n += len(m.Unresolved)
	}
	return n
}
