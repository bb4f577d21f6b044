// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics registers the prometheus collectors this operator
// exposes, following the shape of gardener's per-controller
// CollectMetrics registrations (e.g.
// pkg/controllermanager/controller/cloudprofile).
package metrics

import (
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReconciliationErrorsTotal counts reconcile failures by the error
	// taxonomy labels from spec §7.
	ReconciliationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rancher_devops_operator",
			Name:      "reconciliation_errors_total",
			Help:      "Total number of reconcile failures, labeled by error_type.",
		},
		[]string{"error_type"},
	)

	// ReconcileDurationSeconds observes the wall-clock duration of a single
	// Reconcile call.
	ReconcileDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rancher_devops_operator",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a single Project reconcile in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// NamespacesDiscoveredTotal counts namespaces the ObserveLoop imports
	// into CR specs.
	NamespacesDiscoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rancher_devops_operator",
			Name:      "observe_namespaces_discovered_total",
			Help:      "Total number of namespaces imported into Project specs by the observe loop.",
		},
	)

	// WatchedClustersGauge reports the number of downstream clusters
	// currently being watched by the observe loop.
	WatchedClustersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rancher_devops_operator",
			Name:      "observe_watched_clusters",
			Help:      "Number of downstream clusters currently watched by the observe loop.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		ReconciliationErrorsTotal,
		ReconcileDurationSeconds,
		NamespacesDiscoveredTotal,
		WatchedClustersGauge,
	)
}
