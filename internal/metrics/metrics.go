// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics contains the metrics exported by a kmicro node.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LatencyBuckets are the bucket boundaries of latency histograms, in
// microseconds. Adjacent buckets differ from each other by 2x or 2.5x.
var LatencyBuckets = []float64{
	10, 20, 50,
	100, 200, 500,
	1000, 2000, 5000,
	10000, 20000, 50000,
	100000, 200000, 500000,
	1000000, 2000000, 5000000,
	10000000, 20000000, 50000000,
}

// Metrics holds the call metrics of one node. A Metrics can safely be used
// from multiple goroutines.
type Metrics struct {
	calls          *prometheus.CounterVec
	callLatency    *prometheus.HistogramVec
	handled        *prometheus.CounterVec
	handledLatency *prometheus.HistogramVec
}

// New returns a new set of metrics labeled with the provided constant
// labels. If reg is not nil, the metrics are registered with it.
func New(reg prometheus.Registerer, labels ...string) *Metrics {
	constLabels := prometheus.Labels{}
	for i := 0; i+1 < len(labels); i += 2 {
		constLabels[labels[i]] = labels[i+1]
	}
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "kmicro_calls_total",
			Help:        "Number of outbound calls, by target and outcome",
			ConstLabels: constLabels,
		}, []string{"target", "outcome"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "kmicro_call_latency_micros",
			Help:        "Latency of outbound calls, in microseconds",
			ConstLabels: constLabels,
			Buckets:     LatencyBuckets,
		}, []string{"target"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "kmicro_handled_total",
			Help:        "Number of inbound calls, by endpoint and outcome",
			ConstLabels: constLabels,
		}, []string{"endpoint", "outcome"}),
		handledLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "kmicro_handled_latency_micros",
			Help:        "Latency of inbound calls, in microseconds",
			ConstLabels: constLabels,
			Buckets:     LatencyBuckets,
		}, []string{"endpoint"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.callLatency, m.handled, m.handledLatency)
	}
	return m
}

// Call records an outbound call to target.
func (m *Metrics) Call(target, outcome string, latency time.Duration) {
	m.calls.WithLabelValues(target, outcome).Inc()
	m.callLatency.WithLabelValues(target).Observe(float64(latency.Microseconds()))
}

// Handled records an inbound call to endpoint.
func (m *Metrics) Handled(endpoint, outcome string, latency time.Duration) {
	m.handled.WithLabelValues(endpoint, outcome).Inc()
	m.handledLatency.WithLabelValues(endpoint).Observe(float64(latency.Microseconds()))
}

// Calls returns the counter of outbound calls to target with the provided
// outcome.
func (m *Metrics) Calls(target, outcome string) prometheus.Counter {
	return m.calls.WithLabelValues(target, outcome)
}

// HandledCalls returns the counter of inbound calls to endpoint with the
// provided outcome.
func (m *Metrics) HandledCalls(endpoint, outcome string) prometheus.Counter {
	return m.handled.WithLabelValues(endpoint, outcome)
}
