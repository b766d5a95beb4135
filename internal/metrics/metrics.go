package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weld-academy-service/internal/domain"
)

// Collector records placement events. It implements app.Observer.
type Collector struct {
	registry *prometheus.Registry

	grades   *prometheus.CounterVec
	badges   *prometheus.CounterVec
	sessions prometheus.Counter
	ratio    prometheus.Histogram
}

// NewCollector registers the placement metrics on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		grades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placement_grades_total",
			Help: "Graded placement quizzes by outcome.",
		}, []string{"passed"}),
		badges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placement_badges_awarded_total",
			Help: "Badges newly granted by the badge evaluator.",
		}, []string{"badge"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "placement_sessions_started_total",
			Help: "Quiz sessions opened.",
		}),
		ratio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "placement_score_ratio",
			Help:    "Score divided by scored-set size for non-empty quizzes.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 1},
		}),
	}
	c.registry.MustRegister(
		c.grades,
		c.badges,
		c.sessions,
		c.ratio,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveSession() {
	c.sessions.Inc()
}

func (c *Collector) ObserveGrade(result domain.QuizResult) {
	c.grades.WithLabelValues(strconv.FormatBool(result.Passed)).Inc()
	if total := result.Total(); total > 0 {
		c.ratio.Observe(float64(result.Score) / float64(total))
	}
}

func (c *Collector) ObserveBadge(key domain.BadgeKey) {
	c.badges.WithLabelValues(string(key)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
