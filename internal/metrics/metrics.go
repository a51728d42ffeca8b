// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus counters and histograms for the
// context, edit and backup engines, served over an optional
// --metrics-addr promhttp endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry groups every counter/histogram pairctl exposes. One Registry
// is created per process and held by cmd/pairctl in a package-level
// variable; the engine packages do not reference it.
type Registry struct {
	reg *prometheus.Registry

	ContextRequests   prometheus.Counter
	ContextItemsEmit  prometheus.Counter
	ContextDuration   prometheus.Histogram
	IndexRebuilds     prometheus.Counter
	IndexStaleSkipped prometheus.Counter
	EditApplies       prometheus.Counter
	EditConflicts     prometheus.Counter
	BackupSessions    prometheus.Counter
	BackupRestores    prometheus.Counter
}

// New creates a Registry with all metrics registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		ContextRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_context_requests_total",
			Help: "Total number of context assembly requests.",
		}),
		ContextItemsEmit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_context_items_emitted_total",
			Help: "Total number of items emitted across all context requests.",
		}),
		ContextDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "pairctl_context_duration_seconds",
			Help: "Wall-clock duration of context assembly requests.",
		}),
		IndexRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_index_rebuilds_total",
			Help: "Total number of symbol index rebuilds.",
		}),
		IndexStaleSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_index_stale_skipped_total",
			Help: "Staleness rebuilds skipped because another process held the lock.",
		}),
		EditApplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_edit_applies_total",
			Help: "Total number of edit spec apply attempts.",
		}),
		EditConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_edit_conflicts_total",
			Help: "Total number of edit applies that reported conflicts.",
		}),
		BackupSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_backup_sessions_total",
			Help: "Total number of backup sessions opened.",
		}),
		BackupRestores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pairctl_backup_restores_total",
			Help: "Total number of backup restore operations.",
		}),
	}
	reg.MustRegister(
		r.ContextRequests, r.ContextItemsEmit, r.ContextDuration,
		r.IndexRebuilds, r.IndexStaleSkipped,
		r.EditApplies, r.EditConflicts,
		r.BackupSessions, r.BackupRestores,
	)
	return r
}

// Handler returns the HTTP handler serving this registry at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve starts a background HTTP server for /metrics on addr. It runs until
// the process exits; errors are delivered on the returned channel.
func (r *Registry) Serve(addr string) <-chan error {
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	go func() {
		errCh <- http.ListenAndServe(addr, mux) //nolint:gosec // local diagnostics endpoint
	}()
	return errCh
}
