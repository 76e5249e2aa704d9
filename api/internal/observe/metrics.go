package observe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	CorrectionsTotal   *prometheus.CounterVec
	CorrectionDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge

	BotUpdatesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers every collector on its own registry, so several instances can coexist.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		CorrectionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typing_assistant_corrections_total",
				Help: "Total number of correction requests sent upstream",
			},
			[]string{"engine", "task", "outcome"},
		),
		CorrectionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typing_assistant_correction_duration_seconds",
				Help:    "Upstream correction latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"engine"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typing_assistant_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typing_assistant_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		HTTPInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "typing_assistant_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
		BotUpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typing_assistant_bot_updates_total",
				Help: "Telegram updates handled, by command",
			},
			[]string{"command"},
		),
		registry: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveCorrection(engine, task, outcome string, elapsed time.Duration) {
	m.CorrectionsTotal.WithLabelValues(engine, task, outcome).Inc()
	m.CorrectionDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordBotUpdate(command string) {
	if command == "" {
		command = "text"
	}
	m.BotUpdatesTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) RecordHTTPRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
