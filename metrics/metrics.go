/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics exposes Prometheus counters for the mirror engine.
package metrics

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_events_ingested_total",
		Help: "Execution-report events appended to the order event log.",
	})
	DuplicateEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_events_duplicate_total",
		Help: "Redelivered execution reports dropped by the dedup index.",
	})
	MirroredOrders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_orders_submitted_total",
		Help: "Shadow New Order Singles submitted.",
	})
	MirrorSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_skips_total",
		Help: "Mirror decisions skipped by rule bounds or zero quantity.",
	})
	MirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_failures_total",
		Help: "Mirror decisions that failed to dispatch.",
	})
	ReplacesPropagated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_replaces_total",
		Help: "Cancel/replace requests propagated to shadow orders.",
	})
	CancelsPropagated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_cancels_total",
		Help: "Cancel requests propagated to shadow orders.",
	})
	Saturations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_saturations_total",
		Help: "Replaces that would shrink a shadow order below its filled quantity.",
	})
	LocateRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_locate_requests_total",
		Help: "Short-locate quote requests sent.",
	})
	LocateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_locate_failures_total",
		Help: "Locates abandoned for insufficient size or dispatch errors.",
	})
	LocateTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mirror_locate_timeouts_total",
		Help: "Locates abandoned because no response arrived in time.",
	})
)

func init() {
	prometheus.MustRegister(
		EventsIngested,
		DuplicateEvents,
		MirroredOrders,
		MirrorSkips,
		MirrorFailures,
		ReplacesPropagated,
		CancelsPropagated,
		Saturations,
		LocateRequests,
		LocateFailures,
		LocateTimeouts,
	)
}

// Serve starts the /metrics endpoint on addr and returns the server so
// the caller can shut it down. Listen errors are logged, not fatal.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv
}
