// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package metrics provides Prometheus instrumentation for the admin API,
// the document store, and the identity-provider adapter.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tessera_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Store metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tessera_store_op_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_store_op_errors_total",
			Help: "Total number of document store operation errors",
		},
		[]string{"operation", "entity"},
	)

	// Identity provider metrics
	IdPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_idp_requests_total",
			Help: "Total requests to the identity provider by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	IdPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tessera_idp_request_duration_seconds",
			Help:    "Duration of identity provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit breaker state: 0=closed, 1=half-open, 2=open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tessera_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Service-layer metrics
	AuthzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_authz_denials_total",
			Help: "Total admin operations rejected for lack of an admin role",
		},
		[]string{"operation"},
	)

	AdminOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_admin_operations_total",
			Help: "Total admin service operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	PolicyVersionsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_policy_versions_written_total",
			Help: "Total policy version records written, by trigger",
		},
		[]string{"trigger"}, // create, update, rollback
	)

	CascadeCleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tessera_cascade_cleanup_failures_total",
			Help: "Total deletes whose assignment cascade cleanup failed",
		},
		[]string{"entity"},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordStoreOp records one document store operation.
func RecordStoreOp(operation, entity string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation, entity).Inc()
	}
}

// RecordIdPRequest records one identity provider call.
func RecordIdPRequest(operation, outcome string, duration time.Duration) {
	IdPRequests.WithLabelValues(operation, outcome).Inc()
	IdPRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAdminOperation records one admin service call outcome.
func RecordAdminOperation(operation, outcome string) {
	AdminOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordAuthzDenial records a Forbidden rejection for an operation.
func RecordAuthzDenial(operation string) {
	AuthzDenials.WithLabelValues(operation).Inc()
}

// RecordPolicyVersion records a written policy version by trigger.
func RecordPolicyVersion(trigger string) {
	PolicyVersionsWritten.WithLabelValues(trigger).Inc()
}

// RecordCascadeCleanupFailure records a delete whose second-phase assignment
// cleanup failed.
func RecordCascadeCleanupFailure(entity string) {
	CascadeCleanupFailures.WithLabelValues(entity).Inc()
}
