// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quickly_match"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Metrics holds the collectors for the voting pipeline. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	VotesCast        *prometheus.CounterVec
	RoundOutcomes    *prometheus.CounterVec
	MatchComputation prometheus.Histogram
	MatchesPersisted prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Total number of vote attempts, by result.",
		}, []string{"result"}),
		RoundOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_outcomes_total",
			Help:      "Total number of round evaluations that changed state, by action.",
		}, []string{"action"}),
		MatchComputation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_computation_duration_seconds",
			Help:      "Duration of match computation in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MatchesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_candidates_total",
			Help:      "Total number of qualifying match candidates computed.",
		}),
	}

	reg.MustRegister(m.VotesCast, m.RoundOutcomes, m.MatchComputation, m.MatchesPersisted)
	return m
}

func (m *Metrics) ObserveVote(result string) {
	if m == nil {
		return
	}
	m.VotesCast.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRoundOutcome(action string) {
	if m == nil {
		return
	}
	m.RoundOutcomes.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveMatchComputation(d time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.MatchComputation.Observe(d.Seconds())
	m.MatchesPersisted.Add(float64(candidates))
}
