package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "websage_extraction_duration_seconds",
			Help:    "Extraction batch duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"strategy"},
	)

	ExtractionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websage_extraction_total",
			Help: "Total extraction batches processed",
		},
		[]string{"strategy", "status"},
	)

	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websage_fallback_total",
			Help: "Extraction batches served by each cascade stage",
		},
		[]string{"stage"},
	)

	SegmentsIndexed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websage_segments_indexed",
			Help: "Segments in the most recently built index",
		},
	)

	AnswerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websage_answer_duration_seconds",
			Help:    "Question answering duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	AnswerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websage_answer_total",
			Help: "Total questions answered",
		},
		[]string{"status"},
	)
)

func Register() {
	prometheus.MustRegister(
		ExtractionDuration,
		ExtractionTotal,
		FallbackTotal,
		SegmentsIndexed,
		AnswerDuration,
		AnswerTotal,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
