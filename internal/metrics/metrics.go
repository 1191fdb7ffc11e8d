// Package metrics holds the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the engine collectors. A Set built without a registerer
// still records; it just isn't scraped anywhere.
type Set struct {
	Turns        *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	ChainDepth   prometheus.Histogram
	TurnDuration prometheus.Histogram
}

// New builds the collector set and registers it when reg is non-nil.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "turns_total",
			Help:      "Inbound statements handled, by resolved flag.",
		}, []string{"flag"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "espalier",
			Name:      "rejections_total",
			Help:      "Input validation rejections, by block component.",
		}, []string{"component"}),
		ChainDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "espalier",
			Name:      "post_skill_chain_depth",
			Help:      "Depth reached by post-skill chaining per turn.",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "espalier",
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent handling one inbound statement.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(s.Turns, s.Rejections, s.ChainDepth, s.TurnDuration)
	}
	return s
}
