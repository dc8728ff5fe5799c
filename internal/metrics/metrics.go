// Package metrics holds the Prometheus collectors exported by the sync daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the sync daemon's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	RPCRequests  *prometheus.CounterVec
	RPCDuration  *prometheus.HistogramVec
	Records      *prometheus.CounterVec
	SweptRecords prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RPCRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantry",
			Subsystem: "syncd",
			Name:      "rpc_requests_total",
			Help:      "RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pantry",
			Subsystem: "syncd",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pantry",
			Subsystem: "syncd",
			Name:      "records_total",
			Help:      "Sync record operations by kind (put, put_conflict, get, get_miss, delete).",
		}, []string{"op"}),
		SweptRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pantry",
			Subsystem: "syncd",
			Name:      "swept_records_total",
			Help:      "Expired sync records removed by the sweeper.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RPCRequests,
		m.RPCDuration,
		m.Records,
		m.SweptRecords,
	)
	return m
}

// RecordOp counts one record operation. It is safe to call on a nil *Metrics.
func (m *Metrics) RecordOp(op string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(op).Inc()
}
