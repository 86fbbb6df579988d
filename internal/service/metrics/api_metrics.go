package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockboard",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockboard",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint and code",
		},
		[]string{"endpoint", "code"},
	)

	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockboard",
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Calls to the market-data provider by function and result",
		},
		[]string{"function", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, UpstreamCalls)
	})
}
