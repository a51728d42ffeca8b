// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import "github.com/brassloom/pairctl/internal/metrics"

// metricsRegistry is created once per process and shared by every
// subcommand handler; it is only exposed over HTTP when --metrics-addr
// is given, but the counters themselves are always live so a later
// --metrics-addr-enabled scrape reflects the whole process lifetime.
var metricsRegistry = metrics.New()

func newMetricsRegistry() *metrics.Registry {
	return metricsRegistry
}
