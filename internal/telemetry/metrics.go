/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks HTTP request latency by method, endpoint
	// and status code.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mimir_forum",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIRequestsTotal counts HTTP requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests served.",
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mimir_forum",
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "Number of in-flight HTTP requests.",
	})

	// APIWebSocketConnections gauges open event stream connections.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mimir_forum",
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Number of open WebSocket event connections.",
	})

	// DatabaseQueryDuration tracks GORM operation latency.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mimir_forum",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database operation duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed database operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Total database operation errors.",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges the open connection count.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mimir_forum",
		Subsystem: "db",
		Name:      "connections_active",
		Help:      "Open database connections.",
	})

	// InterviewsCreatedTotal counts interviews by opportunity type.
	InterviewsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "scheduling",
		Name:      "interviews_created_total",
		Help:      "Total interviews created.",
	}, []string{"opportunity_type"})

	// InterviewTransitionsTotal counts lifecycle transitions by outcome state.
	InterviewTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "scheduling",
		Name:      "interview_transitions_total",
		Help:      "Total interview state transitions.",
	}, []string{"to_status"})

	// QueueOptimizationsTotal counts optimizer runs.
	QueueOptimizationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "scheduling",
		Name:      "queue_optimizations_total",
		Help:      "Total queue optimization runs.",
	})

	// ConflictsDetectedTotal counts scheduling conflicts found at creation.
	ConflictsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mimir_forum",
		Subsystem: "scheduling",
		Name:      "conflicts_detected_total",
		Help:      "Total scheduling conflicts detected.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
