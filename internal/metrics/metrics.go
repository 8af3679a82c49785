package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	responsesSubmitted prometheus.Counter
	surveysClosed      prometheus.Counter
	liveConnections    prometheus.Gauge
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formpulse",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the survey API.",
		}, []string{"method", "path", "status"})
		responsesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "formpulse",
			Name:      "responses_submitted_total",
			Help:      "Survey responses stored.",
		})
		surveysClosed = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "formpulse",
			Name:      "surveys_closed_total",
			Help:      "Surveys deactivated by the expiry job.",
		})
		liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "formpulse",
			Name:      "live_connections",
			Help:      "Open live-update WebSocket connections.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncResponseSubmitted() {
	if responsesSubmitted != nil {
		responsesSubmitted.Inc()
	}
}

func IncSurveyClosed() {
	if surveysClosed != nil {
		surveysClosed.Inc()
	}
}

// AddLiveConnections moves the open connection gauge by delta.
func AddLiveConnections(delta float64) {
	if liveConnections != nil {
		liveConnections.Add(delta)
	}
}
