package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "structmap_parsing_seconds",
		Help:    "Time spent extracting imports from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "structmap_stage_seconds",
		Help:    "Time spent in one pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	ModulesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structmap_modules",
		Help: "Number of modules in the most recent structure map.",
	})

	PackagesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structmap_packages",
		Help: "Number of packages in the most recent structure map.",
	})

	EdgesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structmap_dependency_edges",
		Help: "Number of group-local dependency edges in the most recent structure map.",
	})

	CyclicGroupsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structmap_cyclic_groups",
		Help: "Number of cyclic sibling groups in the most recent structure map.",
	})

	UnresolvedImportsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "structmap_unresolved_imports",
		Help: "Number of imports that did not resolve to a discovered module.",
	})

	BuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structmap_builds_total",
		Help: "Total number of structure map builds by outcome.",
	}, []string{"outcome"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "structmap_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	PreviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "structmap_preview_requests_total",
		Help: "Requests served by the preview server by status class.",
	}, []string{"code"})
)
