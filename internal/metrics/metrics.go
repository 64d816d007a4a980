// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics holds the agent's Prometheus collectors. They live on a
// private registry so tests and embedders do not collide with the global
// default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector below.
var Registry = prometheus.NewRegistry()

var (
	// WorkflowRuns counts finished workflow runs by workflow and status
	// ("success" or "failure").
	WorkflowRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Name:      "workflow_runs_total",
		Help:      "Finished workflow runs.",
	}, []string{"workflow", "status"})

	// NodeDuration observes how long each workflow node took.
	NodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agent",
		Name:      "node_duration_seconds",
		Help:      "Duration of workflow node executions.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"workflow", "node"})

	// Notifications counts webhook notification attempts by outcome.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agent",
		Name:      "notifications_total",
		Help:      "Webhook notification attempts.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(WorkflowRuns, NodeDuration, Notifications)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
