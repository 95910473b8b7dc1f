// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package metrics holds the Prometheus collectors of the process. They are registered on
// the default registry and exposed by the server on /-/metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "unisync"

var (
	// RunsTotal counts finished sync runs by result and error kind.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by result",
		},
		[]string{"source_connector", "destination_connector", "result", "error_kind"},
	)

	// RunDuration tracks the duration of sync runs in seconds.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of sync runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
		[]string{"source_connector", "destination_connector"},
	)

	// RunsInFlight tracks the runs currently executing.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_in_flight",
			Help:      "Number of sync runs currently executing",
		},
	)

	// OperationsTotal counts the operations emitted by sources.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "operations_total",
			Help:      "Total number of operations emitted by sources by type",
		},
		[]string{"source_connector", "type"},
	)

	// DispatchTotal counts unified API dispatches by result.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unified",
			Name:      "dispatch_total",
			Help:      "Total number of unified API calls dispatched to adapters",
		},
		[]string{"vertical", "operation", "connector", "result"},
	)

	// DispatchDuration tracks adapter latency.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "unified",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of unified API calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"vertical", "operation"},
	)

	// DestinationFlushes counts the batches written by destinations.
	DestinationFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "destination",
			Name:      "flushes_total",
			Help:      "Total number of batches flushed by destinations",
		},
		[]string{"destination_connector"},
	)

	// EventsEmitted counts run events by emitter and outcome.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of run events handed to the emitter",
		},
		[]string{"emitter", "event", "result"},
	)
)
