package graph

import (
	"context"
	"path/filepath"
	"testing"

	"structmap/internal/engine/parser"
	"structmap/internal/engine/structure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var treeRoot = filepath.FromSlash("/work/app")

func rec(rel string, imports ...string) parser.ModuleRecord {
	r := parser.ModuleRecord{Path: filepath.Join(treeRoot, filepath.FromSlash(rel)), Language: "typescript"}
	for _, imp := range imports {
		r.Imports = append(r.Imports, parser.ModuleImport{
			Path: filepath.Join(treeRoot, filepath.FromSlash(imp)),
			Raw:  "./" + imp,
		})
	}
	return r
}

func buildTree(t *testing.T, excludes []string, records ...parser.ModuleRecord) *structure.Tree {
	t.Helper()
	tree, err := structure.Build(structure.Options{Root: treeRoot, Excludes: excludes}, records)
	require.NoError(t, err)
	return tree
}

func moduleLevel(t *testing.T, tree *structure.Tree, id string) int {
	t.Helper()
	m, ok := tree.Module(id)
	require.True(t, ok, "module %s", id)
	return m.Level
}

func TestLevelizeTree_Chain(t *testing.T) {
	tree := buildTree(t, nil,
		rec("a.ts", "b.ts"),
		rec("b.ts", "c.ts"),
		rec("c.ts"),
	)
	summary, err := LevelizeTree(context.Background(), tree, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, moduleLevel(t, tree, "a.ts"))
	assert.Equal(t, 1, moduleLevel(t, tree, "b.ts"))
	assert.Equal(t, 0, moduleLevel(t, tree, "c.ts"))
	assert.Zero(t, summary.CycleCount())
	assert.Equal(t, 1, summary.Groups)
	for _, e := range tree.Root.Dependencies {
		assert.False(t, e.Cyclic)
	}
}

func TestLevelizeTree_MutualImport(t *testing.T) {
	tree := buildTree(t, nil,
		rec("a.ts", "b.ts"),
		rec("b.ts", "a.ts"),
	)
	summary, err := LevelizeTree(context.Background(), tree, 0)
	require.NoError(t, err)

	require.Len(t, tree.Root.Dependencies, 2)
	for _, e := range tree.Root.Dependencies {
		assert.True(t, e.Cyclic, "%s -> %s", e.From, e.To)
	}
	assert.Equal(t, moduleLevel(t, tree, "a.ts"), moduleLevel(t, tree, "b.ts"))
	assert.Equal(t, [][]string{{"a.ts", "b.ts"}}, tree.Root.Cycles)
	assert.Equal(t, 1, summary.CycleCount())
}

func TestLevelizeTree_ExcludedModule(t *testing.T) {
	tree := buildTree(t, []string{"b.ts"},
		rec("a.ts", "b.ts"),
		rec("b.ts", "c.ts"),
		rec("c.ts"),
	)
	_, err := LevelizeTree(context.Background(), tree, 2)
	require.NoError(t, err)

	_, ok := tree.Module("b.ts")
	assert.False(t, ok)
	assert.Empty(t, tree.Root.Dependencies)
	assert.Equal(t, 0, moduleLevel(t, tree, "a.ts"))
	assert.Equal(t, 0, moduleLevel(t, tree, "c.ts"))
}

func TestLevelizeTree_PackageLevels(t *testing.T) {
	tree := buildTree(t, nil,
		rec("ui/view.ts", "core/model.ts"),
		rec("core/model.ts", "util/strings.ts"),
		rec("core/service.ts", "core/model.ts"),
		rec("util/strings.ts"),
	)
	_, err := LevelizeTree(context.Background(), tree, 4)
	require.NoError(t, err)

	levels := map[string]int{}
	for _, id := range []string{"ui", "core", "util"} {
		p, ok := tree.Package(id)
		require.True(t, ok)
		levels[id] = p.Level
	}
	assert.Equal(t, map[string]int{"ui": 2, "core": 1, "util": 0}, levels)
	assert.Equal(t, 1, moduleLevel(t, tree, "core/service.ts"))
	assert.Equal(t, 0, moduleLevel(t, tree, "core/model.ts"))
	assert.Equal(t, 0, tree.Root.Level)
}

func TestLevelizeTree_NoOrphanEdges(t *testing.T) {
	tree := buildTree(t, nil,
		rec("a/x.ts", "b/y.ts", "a/z/q.ts"),
		rec("a/z/q.ts", "b/y.ts"),
		rec("b/y.ts", "a/x.ts"),
		rec("main.ts", "a/x.ts"),
	)
	_, err := LevelizeTree(context.Background(), tree, 3)
	require.NoError(t, err)

	tree.Walk(func(p *structure.Package) {
		children := map[string]bool{}
		for _, id := range p.ChildIDs() {
			children[id] = true
		}
		for _, e := range p.Dependencies {
			assert.True(t, children[e.From], "edge source %s not a child of %s", e.From, p.ID)
			assert.True(t, children[e.To], "edge target %s not a child of %s", e.To, p.ID)
			assert.NotEqual(t, e.From, e.To)
		}
	})
}

func TestLevelizeTree_ParallelMatchesSequential(t *testing.T) {
	records := []parser.ModuleRecord{
		rec("a/x.ts", "b/y.ts"),
		rec("a/w.ts", "a/x.ts"),
		rec("b/y.ts", "c/z.ts"),
		rec("c/z.ts", "b/y.ts"),
		rec("c/k/m.ts", "c/z.ts"),
		rec("d.ts", "a/w.ts"),
	}
	snapshot := func(workers int) map[string][2]int {
		tree := buildTree(t, nil, records...)
		_, err := LevelizeTree(context.Background(), tree, workers)
		require.NoError(t, err)
		out := map[string][2]int{}
		tree.Walk(func(p *structure.Package) {
			for _, c := range p.Packages {
				out[c.ID] = [2]int{c.Level, boolInt(c.Cyclic)}
			}
			for _, m := range p.Modules {
				out[m.ID] = [2]int{m.Level, boolInt(m.Cyclic)}
			}
		})
		return out
	}

	sequential := snapshot(1)
	assert.Equal(t, sequential, snapshot(8))
	assert.Equal(t, sequential, snapshot(8), "repeated runs must agree")
	assert.Equal(t, [2]int{0, 1}, sequential["b"])
	assert.Equal(t, [2]int{0, 1}, sequential["c"])
	assert.Equal(t, [2]int{1, 0}, sequential["a"])
}

func TestLevelizeTree_Cancelled(t *testing.T) {
	tree := buildTree(t, nil, rec("a/x.ts"), rec("b/y.ts"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LevelizeTree(ctx, tree, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
