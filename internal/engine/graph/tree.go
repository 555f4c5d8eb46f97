package graph

import (
	"context"
	"runtime"

	"structmap/internal/engine/structure"

	"golang.org/x/sync/errgroup"
)

// TreeSummary aggregates the leveling of every sibling group.
type TreeSummary struct {
	Groups int
	// Cycles holds each cyclic group, keyed by the package whose children form it.
	Cycles map[string][][]string
}

func (s TreeSummary) CycleCount() int {
	n := 0
	for _, c := range s.Cycles {
		n += len(c)
	}
	return n
}

// LevelizeTree levels every sibling group of the tree. Groups are independent
// once rollup has finished, so they run concurrently on up to workers
// goroutines; each group writes only its own children and edges.
func LevelizeTree(ctx context.Context, tree *structure.Tree, workers int) (TreeSummary, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var groups []*structure.Package
	tree.Walk(func(p *structure.Package) { groups = append(groups, p) })

	results := make([]GroupResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pkg := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = levelizeGroup(tree, pkg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TreeSummary{}, err
	}

	tree.SetLevel(structure.RootID, 0, false)

	summary := TreeSummary{Groups: len(groups), Cycles: make(map[string][][]string)}
	for i, pkg := range groups {
		if len(results[i].Cycles) > 0 {
			summary.Cycles[pkg.ID] = results[i].Cycles
		}
	}
	return summary, nil
}

// levelizeGroup only touches the children of pkg, so concurrent calls on
// different packages never write the same node.
func levelizeGroup(tree *structure.Tree, pkg *structure.Package) GroupResult {
	ids := pkg.ChildIDs()
	res := Levelize(ids, pkg.Adjacency())

	for _, id := range ids {
		tree.SetLevel(id, res.Levels[id], res.InCycle(id))
	}
	for i := range pkg.Dependencies {
		e := &pkg.Dependencies[i]
		e.Cyclic = res.SameCycle(e.From, e.To)
	}
	pkg.Cycles = res.Cycles
	return res
}
