/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see admin.go for full license header)
 ***************************************************************************** */

package admin

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nehonix-Team/dynagate/internal/service"
)

// collector is a prometheus.Collector that scrapes the service manager on
// every /_dynapm/api/metrics request, rather than maintaining its own
// shadow counters — the State/Snapshot types are already the source of
// truth, so this just re-describes them in Prometheus's data model.
type collector struct {
	registry *prometheus.Registry
	manager  *service.Manager

	status            *prometheus.Desc
	activeConnections *prometheus.Desc
	startCount        *prometheus.Desc
	totalUptime       *prometheus.Desc

	// requestsTotal/errorsTotal are process-wide, not per-service: every
	// dispatched request increments requestsTotal, and a 503 because the
	// service could not be brought online additionally increments
	// errorsTotal. A 502 from the proxy engine is not counted as an error.
	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter
}

func newCollector(manager *service.Manager) *collector {
	c := &collector{
		registry: prometheus.NewRegistry(),
		manager:  manager,
		status: prometheus.NewDesc(
			"dynagate_service_status", "Service lifecycle status (0=offline,1=starting,2=online,3=stopping)",
			[]string{"service"}, nil),
		activeConnections: prometheus.NewDesc(
			"dynagate_service_active_connections", "In-flight connections currently proxied to the service",
			[]string{"service"}, nil),
		startCount: prometheus.NewDesc(
			"dynagate_service_start_count_total", "Number of times the service has been started",
			[]string{"service"}, nil),
		totalUptime: prometheus.NewDesc(
			"dynagate_service_total_uptime_seconds", "Cumulative time the service has spent online",
			[]string{"service"}, nil),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dynagate_requests_total", Help: "Requests dispatched to a service across the whole process.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dynagate_errors_total", Help: "Dispatched requests that ended in a start/health error.",
		}),
	}
	c.registry.MustRegister(c, c.requestsTotal, c.errorsTotal)
	return c
}

// recordRequest is called once per dispatched request; isError marks a
// 503 outcome (start failure or health timeout).
func (c *collector) recordRequest(isError bool) {
	c.requestsTotal.Inc()
	if isError {
		c.errorsTotal.Inc()
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.status
	ch <- c.activeConnections
	ch <- c.startCount
	ch <- c.totalUptime
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range c.manager.All() {
		svc, st, ok := c.manager.Service(name)
		if !ok {
			continue
		}
		snap := st.Snapshot(svc)
		ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, float64(snap.Status), name)
		ch <- prometheus.MustNewConstMetric(c.activeConnections, prometheus.GaugeValue, float64(snap.ActiveConnections), name)
		ch <- prometheus.MustNewConstMetric(c.startCount, prometheus.CounterValue, float64(snap.StartCount), name)
		ch <- prometheus.MustNewConstMetric(c.totalUptime, prometheus.GaugeValue, snap.TotalUptime.Seconds(), name)
	}
}
