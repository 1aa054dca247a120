package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks state transitions, side-effect failures and background jobs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transiciones    *prometheus.CounterVec
	EfectosFallidos *prometheus.CounterVec
	JobsProcesados  *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	DLQReencolados  prometheus.Counter
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transiciones: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigest_transiciones_total",
			Help: "State transitions applied, by entity and states",
		}, []string{"entidad", "desde", "hacia"}),
		EfectosFallidos: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigest_efectos_fallidos_total",
			Help: "Notification or audit side effects that could not be handed off",
		}, []string{"tipo"}),
		JobsProcesados: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sigest_jobs_procesados_total",
			Help: "Background jobs processed, by type and result",
		}, []string{"tipo", "resultado"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigest_job_duration_seconds",
			Help:    "Duration of background job handlers",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"tipo"}),
		DLQReencolados: f.NewCounter(prometheus.CounterOpts{
			Name: "sigest_dlq_redrive_total",
			Help: "Dead-letter entries pushed back to their queue",
		}),
	}
}

// IncTransicion records a successful state change.
func (m *Metrics) IncTransicion(entidad, desde, hacia string) {
	if m == nil {
		return
	}
	m.Transiciones.WithLabelValues(entidad, desde, hacia).Inc()
}

// IncEfectoFallido records a side effect dropped after the primary mutation committed.
func (m *Metrics) IncEfectoFallido(tipo string) {
	if m == nil {
		return
	}
	m.EfectosFallidos.WithLabelValues(tipo).Inc()
}

// ObserveJob records a job outcome. Call with time.Now() taken before the handler ran.
func (m *Metrics) ObserveJob(tipo string, start time.Time, err error) {
	if m == nil {
		return
	}
	resultado := "ok"
	if err != nil {
		resultado = "error"
	}
	m.JobsProcesados.WithLabelValues(tipo, resultado).Inc()
	m.JobDuration.WithLabelValues(tipo).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncDLQReencolado() {
	if m == nil {
		return
	}
	m.DLQReencolados.Inc()
}
