package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

var (
	UseCaseRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usecase_requests_total",
		Help:      "Checkout operations by outcome.",
	}, []string{"use_case", "outcome"})

	UseCaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "usecase_duration_seconds",
		Help:      "Checkout operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"use_case"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	Jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Background jobs by name and result.",
	}, []string{"job", "result"})

	// StockAvailable di-refresh tiap kali katalog ditampilkan.
	StockAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stock_available",
		Help:      "Unconsumed stock units per group, as last observed.",
	}, []string{"group"})
)

func init() {
	prometheus.MustRegister(UseCaseRequests, UseCaseDuration, HTTPRequests, HTTPDuration, Jobs, StockAvailable)
}

// ObserveUseCase records one finished use-case call.
func ObserveUseCase(useCase, outcome string, start time.Time) {
	UseCaseRequests.WithLabelValues(useCase, outcome).Inc()
	UseCaseDuration.WithLabelValues(useCase).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler { return promhttp.Handler() }
