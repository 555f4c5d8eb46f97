package app

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"structmap/internal/core/errors"
	"structmap/internal/core/ports"
	"structmap/internal/engine/graph"
	"structmap/internal/engine/parser"
	"structmap/internal/engine/resolver"
	"structmap/internal/engine/structure"
	"structmap/internal/output/viewmodel"
	"structmap/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Result is one complete build. Every build starts from scratch.
type Result struct {
	RunID     string
	Tree      *structure.Tree
	Summary   graph.TreeSummary
	ViewModel *viewmodel.ViewModel
	Files     int
	Duration  time.Duration
	BuiltAt   time.Time
}

// Build discovers, extracts, groups, levels and projects the root in one
// barrier-separated pass. Any unreadable file fails the whole build.
func (a *App) Build(ctx context.Context) (res *Result, err error) {
	runID := newRunID()
	logger := slog.With("run_id", runID)
	start := time.Now()

	ctx, span := observability.Tracer().Start(ctx, "structmap.build")
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("root", a.Root))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.BuildsTotal.WithLabelValues(outcome).Inc()
		span.End()
		a.record(res, err)
	}()

	var discovery Discovery
	if err := a.stage(ctx, "discover", func(ctx context.Context) error {
		var err error
		discovery, err = a.Discover(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var records []parser.ModuleRecord
	if err := a.stage(ctx, "extract", func(ctx context.Context) error {
		var err error
		records, err = a.extractAll(ctx, discovery.Files)
		return err
	}); err != nil {
		return nil, err
	}

	var tree *structure.Tree
	if err := a.stage(ctx, "group", func(context.Context) error {
		var err error
		tree, err = structure.Build(structure.Options{Root: a.Root, Excludes: a.Config.Exclude}, records)
		if err == nil {
			tree.Excluded = append(discovery.Excluded, tree.Excluded...)
		}
		return err
	}); err != nil {
		return nil, err
	}

	var summary graph.TreeSummary
	if err := a.stage(ctx, "levelize", func(ctx context.Context) error {
		var err error
		summary, err = graph.LevelizeTree(ctx, tree, a.Config.Levelize.Workers)
		return err
	}); err != nil {
		return nil, err
	}

	var vm *viewmodel.ViewModel
	_ = a.stage(ctx, "project", func(context.Context) error {
		vm = viewmodel.Build(tree)
		return nil
	})

	observability.ModulesTotal.Set(float64(tree.ModuleCount()))
	observability.PackagesTotal.Set(float64(tree.PackageCount()))
	observability.EdgesTotal.Set(float64(tree.EdgeCount()))
	observability.CyclicGroupsTotal.Set(float64(summary.CycleCount()))
	observability.UnresolvedImportsTotal.Set(float64(tree.UnresolvedCount()))

	res = &Result{
		RunID:     runID,
		Tree:      tree,
		Summary:   summary,
		ViewModel: vm,
		Files:     len(discovery.Files),
		Duration:  time.Since(start),
		BuiltAt:   time.Now().UTC(),
	}
	logger.Info("structure map built",
		"root", a.Root,
		"modules", tree.ModuleCount(),
		"packages", tree.PackageCount(),
		"edges", tree.EdgeCount(),
		"cycles", summary.CycleCount(),
		"unresolved", tree.UnresolvedCount(),
		"duration", res.Duration,
	)
	for pkgID, cycles := range summary.Cycles {
		for _, cycle := range cycles {
			logger.Debug("cyclic group", "package", pkgID, "members", cycle)
		}
	}
	return res, nil
}

func (a *App) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "structmap."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.AddContext(err, errors.CtxStage, name)
	}
	return nil
}

// extractAll reads and parses files concurrently. Records keep discovery
// order so tree insertion order is stable across runs.
func (a *App) extractAll(ctx context.Context, files []string) ([]parser.ModuleRecord, error) {
	var res ports.ModuleResolver = resolver.NewJavaScriptResolver(files)
	records := make([]parser.ModuleRecord, len(files))

	workers := a.Config.Levelize.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := a.extractFile(res, path)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *App) extractFile(res ports.ModuleResolver, path string) (parser.ModuleRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return parser.ModuleRecord{}, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read source file"), errors.CtxPath, path)
	}
	raw, err := a.extractor.ExtractImports(path, content)
	if err != nil {
		return parser.ModuleRecord{}, errors.AddContext(err, errors.CtxPath, path)
	}
	return res.ResolveAll(path, a.extractor.GetLanguage(path), raw), nil
}
