package server

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds the lock-free counters maintained by a running Server. A
// *Stats is itself a prometheus.Collector, so it can be registered
// directly with a prometheus.Registerer to expose /metrics.
type Stats struct {
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Int64
	TotalRequests     atomic.Uint64
	ConnectionErrors  atomic.Uint64
	StartTime         time.Time
}

var (
	totalConnectionsDesc  = prometheus.NewDesc("gale_connections_total", "Total TCP connections accepted.", nil, nil)
	activeConnectionsDesc = prometheus.NewDesc("gale_connections_active", "Currently open TCP connections.", nil, nil)
	totalRequestsDesc     = prometheus.NewDesc("gale_requests_total", "Total HTTP requests dispatched.", nil, nil)
	connectionErrorsDesc  = prometheus.NewDesc("gale_connection_errors_total", "Total Accept() errors.", nil, nil)
	uptimeDesc            = prometheus.NewDesc("gale_uptime_seconds", "Seconds since the server started.", nil, nil)
)

// Describe implements prometheus.Collector.
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- totalConnectionsDesc
	ch <- activeConnectionsDesc
	ch <- totalRequestsDesc
	ch <- connectionErrorsDesc
	ch <- uptimeDesc
}

// Collect implements prometheus.Collector.
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(totalConnectionsDesc, prometheus.CounterValue, float64(s.TotalConnections.Load()))
	ch <- prometheus.MustNewConstMetric(activeConnectionsDesc, prometheus.GaugeValue, float64(s.ActiveConnections.Load()))
	ch <- prometheus.MustNewConstMetric(totalRequestsDesc, prometheus.CounterValue, float64(s.TotalRequests.Load()))
	ch <- prometheus.MustNewConstMetric(connectionErrorsDesc, prometheus.CounterValue, float64(s.ConnectionErrors.Load()))
	ch <- prometheus.MustNewConstMetric(uptimeDesc, prometheus.GaugeValue, time.Since(s.StartTime).Seconds())
}

// RequestsPerSecond returns the lifetime average request rate.
func (s *Stats) RequestsPerSecond() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.TotalRequests.Load()) / elapsed
}
