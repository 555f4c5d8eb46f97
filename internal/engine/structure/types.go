package structure

import "structmap/internal/engine/parser"

type Kind string

const (
	KindModule  Kind = "module"
	KindPackage Kind = "package"
)

// RootID identifies the package tree root.
const RootID = "."

// Module is one source file in the tree. ID is its root-relative slash path.
type Module struct {
	ID         string
	Path       string
	Name       string
	SimpleName string
	PackageID  string
	Language   string
	Imports    []parser.ModuleImport
	// Dependencies lists the IDs of the modules this one imports, first-seen order.
	Dependencies []string
	Unresolved   []string
	Level        int
	Cyclic       bool
}

// Package is a directory grouping. Its Dependencies and Cycles describe the
// sibling group formed by its direct children.
type Package struct {
	ID           string
	Name         string
	Path         string
	ParentID     string
	Packages     []*Package
	Modules      []*Module
	Dependencies []Edge
	Cycles       [][]string
	Level        int
	Cyclic       bool

	edgeIndex map[string]int
}

// Edge is a directed "From imports To" relation between two siblings.
type Edge struct {
	From   string
	To     string
	Cyclic bool
}

// ChildIDs returns the sibling group in tree order: packages first, then modules.
func (p *Package) ChildIDs() []string {
	ids := make([]string, 0, len(p.Packages)+len(p.Modules))
	for _, child := range p.Packages {
		ids = append(ids, child.ID)
	}
	for _, child := range p.Modules {
		ids = append(ids, child.ID)
	}
	return ids
}

// Adjacency returns the group's local edges as from -> targets, in edge order.
func (p *Package) Adjacency() map[string][]string {
	adj := make(map[string][]string, len(p.Dependencies))
	for _, e := range p.Dependencies {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

func (p *Package) addEdge(from, to string) {
	if from == to {
		return
	}
	key := from + "\x00" + to
	if p.edgeIndex == nil {
		p.edgeIndex = make(map[string]int)
	}
	if _, ok := p.edgeIndex[key]; ok {
		return
	}
	p.edgeIndex[key] = len(p.Dependencies)
	p.Dependencies = append(p.Dependencies, Edge{From: from, To: to})
}
