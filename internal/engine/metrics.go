package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus движка рекомендаций и трекера позиций

var (
	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "engine",
		Name:      "recommendations_total",
		Help:      "Количество запросов рекомендаций по результату",
	}, []string{"status"})

	recommendationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "advisor",
		Subsystem: "engine",
		Name:      "recommendation_duration_seconds",
		Help:      "Длительность полного конвейера рекомендации",
		Buckets:   prometheus.DefBuckets,
	})

	stageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "engine",
		Name:      "stage_errors_total",
		Help:      "Ошибки конвейера по этапу",
	}, []string{"stage"})

	openPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "advisor",
		Subsystem: "tracker",
		Name:      "open_positions",
		Help:      "Текущее количество открытых позиций",
	})

	positionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "tracker",
		Name:      "position_transitions_total",
		Help:      "Переходы статуса позиций",
	}, []string{"to"})

	skippedRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "advisor",
		Subsystem: "tracker",
		Name:      "skipped_refreshes_total",
		Help:      "Пропущенные обновления позиций из-за недоступности данных",
	})
)

// RecordRecommendation фиксирует исход запроса рекомендации
func RecordRecommendation(status string, seconds float64) {
	recommendationsTotal.WithLabelValues(status).Inc()
	recommendationDuration.Observe(seconds)
}

// RecordStageError фиксирует ошибку этапа конвейера
func RecordStageError(stage string) {
	stageErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordPositionTransition фиксирует переход статуса позиции
func RecordPositionTransition(to string) {
	positionTransitionsTotal.WithLabelValues(to).Inc()
}

// SetOpenPositions обновляет gauge открытых позиций
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// RecordSkippedRefresh фиксирует пропущенное обновление
func RecordSkippedRefresh() {
	skippedRefreshesTotal.Inc()
}
