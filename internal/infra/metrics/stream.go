package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sseConnections, progressEventsTotal) }

var sseConnections = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "sse_connections",
		Help: "Live SSE connections currently held open.",
	},
)

var progressEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "progress_events_total",
		Help: "Progress updates published to the bus, labeled by status.",
	},
	[]string{"status"},
)

func IncSSEConnections()             { sseConnections.Inc() }
func DecSSEConnections()             { sseConnections.Dec() }
func IncProgressEvent(status string) { progressEventsTotal.WithLabelValues(norm(status)).Inc() }
