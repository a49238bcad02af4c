// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics definitions
var (
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "link_store_operation_seconds",
		Help:    "Time spent on a single triplestore exchange.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	StoreOperationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_store_operation_failures_total",
		Help: "Total number of triplestore exchanges that failed.",
	}, []string{"operation"})

	StatementsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "link_statements_returned",
		Help:    "Number of statements returned by a read.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_http_requests_total",
		Help: "Total number of api requests by route and status code.",
	}, []string{"route", "code"})

	ExportedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "link_exported_files_total",
		Help: "Total number of export files by outcome.",
	}, []string{"outcome"})

	StoreUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "link_store_up",
		Help: "Whether the last triplestore health probe succeeded.",
	})
)

// ObserveStoreOperation records the duration and the outcome of
// one triplestore exchange started at start
func ObserveStoreOperation(operation string, start time.Time, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreOperationFailures.WithLabelValues(operation).Inc()
	}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// CountRequests wraps a handler and counts its responses under route
func CountRequests(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}
