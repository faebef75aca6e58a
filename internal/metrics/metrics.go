// Package metrics records swapdesk metrics. Every helper updates the
// Prometheus collectors exposed on /metrics and emits a structured metric
// Event, which is also published to CloudWatch once InitCloudWatch has run.
//
// Registers:
//
//	#swapdesk_price_fetches_total{source,result}
//	#swapdesk_price_fetch_duration_seconds{source}
//	#swapdesk_priced_assets
//	#swapdesk_swap_transitions_total{state}
//	#swapdesk_websocket_clients
//	#swapdesk_http_requests_total{method,route,status}
//	#go_* and process_* system metrics
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry = prometheus.NewRegistry()

	priceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapdesk_price_fetches_total",
			Help: "Number of price feed fetches by outcome",
		},
		[]string{"source", "result"},
	)
	priceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapdesk_price_fetch_duration_seconds",
			Help:    "Latency of price feed fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	pricedAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swapdesk_priced_assets",
		Help: "Number of assets in the current price book",
	})
	swapTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapdesk_swap_transitions_total",
			Help: "Number of swap session state changes by target state",
		},
		[]string{"state"},
	)
	websocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "swapdesk_websocket_clients",
		Help: "Number of connected websocket subscribers",
	})
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapdesk_http_requests_total",
			Help: "Number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry.MustRegister(
			priceFetches,
			priceFetchDuration,
			pricedAssets,
			swapTransitions,
			websocketClients,
			httpRequests,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObservePriceFetch records one fetch of the price feed.
func ObservePriceFetch(source string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	priceFetches.WithLabelValues(source, result).Inc()
	priceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())

	record(KindPriceFetch, float64(duration.Microseconds())/1000, map[string]string{
		"source": source,
		"result": result,
	})
}

func SetPricedAssets(n int) {
	pricedAssets.Set(float64(n))
	record(KindPricedAssets, float64(n), nil)
}

func IncSwapTransition(state string) {
	swapTransitions.WithLabelValues(state).Inc()
	record(KindSwapTransition, 1, map[string]string{"state": state})
}

func SetWebsocketClients(n int) {
	websocketClients.Set(float64(n))
	record(KindWebsocketClients, float64(n), nil)
}

// ObserveHTTPRequest counts a served request. It does not emit a metric
// event.
func ObserveHTTPRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
