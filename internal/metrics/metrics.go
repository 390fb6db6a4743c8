// Package metrics exposes the Prometheus instrumentation shared by every
// RaftLog instance in a process. Counters and histograms are labeled by
// the log's dbid so a process hosting more than one log still yields a
// meaningful per-log breakdown.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AppendsTotal counts successful Append calls.
	AppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raftlog",
		Name:      "appends_total",
		Help:      "Total number of entries appended to the log.",
	}, []string{"log"})

	// DeletesTotal counts entries removed by Delete.
	DeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raftlog",
		Name:      "deletes_total",
		Help:      "Total number of entries removed from the log by Delete.",
	}, []string{"log"})

	// RecoveriesTotal counts completed Open/recovery passes.
	RecoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raftlog",
		Name:      "recoveries_total",
		Help:      "Total number of times a log file was opened and replayed.",
	}, []string{"log"})

	// CacheHitsTotal and CacheMissesTotal track EntryCache effectiveness.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raftlog",
		Name:      "cache_hits_total",
		Help:      "Total number of Get calls served from the in-memory entry cache.",
	}, []string{"log"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "raftlog",
		Name:      "cache_misses_total",
		Help:      "Total number of Get calls that fell through to disk.",
	}, []string{"log"})

	// SyncSeconds measures the latency of Sync calls.
	SyncSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "raftlog",
		Name:      "sync_seconds",
		Help:      "Latency of Sync calls against the log file and its sidecar.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"log"})

	// RecoverySeconds measures how long the startup replay took.
	RecoverySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "raftlog",
		Name:      "recovery_seconds",
		Help:      "Latency of the Open-time recovery scan.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"log"})
)
