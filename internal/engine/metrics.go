package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation outcomes used as the result label.
const (
	resultOK         = "ok"
	resultValidation = "validation"
	resultStore      = "store_error"
	resultSuperseded = "superseded"
)

type metrics struct {
	mutations     *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	loads         *prometheus.CounterVec
	nodes         prometheus.Gauge
	edges         prometheus.Gauge
	warnings      *prometheus.GaugeVec
}

// newMetrics registers engine metrics with reg. A nil reg creates
// unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		mutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "systrav",
				Subsystem: "engine",
				Name:      "mutations_total",
				Help:      "Total number of graph mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		storeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "systrav",
				Subsystem: "store",
				Name:      "call_duration_seconds",
				Help:      "Duration of record store calls in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"call"},
		),
		loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "systrav",
				Subsystem: "engine",
				Name:      "loads_total",
				Help:      "Total number of graph loads by result",
			},
			[]string{"result"},
		),
		nodes: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "systrav",
				Subsystem: "graph",
				Name:      "nodes",
				Help:      "Number of systems in the live graph",
			},
		),
		edges: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "systrav",
				Subsystem: "graph",
				Name:      "edges",
				Help:      "Number of interfaces in the live graph",
			},
		),
		warnings: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "systrav",
				Subsystem: "graph",
				Name:      "consistency_warnings",
				Help:      "Consistency warnings found by the last load or check, by kind",
			},
			[]string{"kind"},
		),
	}
}
