package app

import (
	"time"

	"structmap/internal/core/errors"
	"structmap/internal/data/history"
	"structmap/internal/engine/structure"
)

// OpenHistory opens the configured build history store, or returns nil when
// history is disabled.
func (a *App) OpenHistory() (*history.Store, error) {
	if !a.Config.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(a.Config.History.Path)
	if err != nil && history.IsCorruptError(err) {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "build history database is corrupt; remove it to start a new one"), errors.CtxPath, a.Config.History.Path)
	}
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "open build history"), errors.CtxPath, a.Config.History.Path)
	}
	return store, nil
}

// HistoryEntry summarizes res for the build history.
func HistoryEntry(res *Result) history.Build {
	entry := history.Build{
		RunID:     res.RunID,
		Timestamp: res.BuiltAt,
		FileCount: res.Files,
		Duration:  res.Duration.Round(time.Millisecond),
	}
	if res.Tree != nil {
		entry.Root = res.Tree.RootPath
		entry.ModuleCount = res.Tree.ModuleCount()
		entry.PackageCount = res.Tree.PackageCount()
		entry.EdgeCount = res.Tree.EdgeCount()
		entry.UnresolvedCount = res.Tree.UnresolvedCount()
		entry.ExcludedCount = len(res.Tree.Excluded)
		entry.MaxLevel = maxLevel(res.Tree)
	}
	entry.CyclicGroups = res.Summary.CycleCount()
	return entry
}

func maxLevel(tree *structure.Tree) int {
	highest := 0
	tree.Walk(func(p *structure.Package) {
		for _, child := range p.Packages {
			highest = max(highest, child.Level)
		}
		for _, mod := range p.Modules {
			highest = max(highest, mod.Level)
		}
	})
	return highest
}
