package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus для слоя рыночных данных

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "marketdata",
		Name:      "cache_hits_total",
		Help:      "Количество попаданий в кэш по типу запроса",
	}, []string{"kind"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "marketdata",
		Name:      "cache_misses_total",
		Help:      "Количество промахов кэша по типу запроса",
	}, []string{"kind"})

	sourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "marketdata",
		Name:      "source_requests_total",
		Help:      "Запросы к провайдерам по провайдеру и результату",
	}, []string{"source", "status"})

	sourceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "advisor",
		Subsystem: "marketdata",
		Name:      "source_latency_seconds",
		Help:      "Латентность запросов к провайдерам",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	dataUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "marketdata",
		Name:      "data_unavailable_total",
		Help:      "Количество запросов, по которым отказали все провайдеры",
	}, []string{"kind"})
)

// RecordCacheHit фиксирует попадание в кэш
func RecordCacheHit(kind string) {
	cacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss фиксирует промах кэша
func RecordCacheMiss(kind string) {
	cacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordSourceRequest фиксирует запрос к провайдеру
func RecordSourceRequest(source, status string, seconds float64) {
	sourceRequestsTotal.WithLabelValues(source, status).Inc()
	sourceLatency.WithLabelValues(source).Observe(seconds)
}

// RecordDataUnavailable фиксирует полный отказ всех провайдеров
func RecordDataUnavailable(kind string) {
	dataUnavailableTotal.WithLabelValues(kind).Inc()
}
