package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of a single run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	ItemsTotal     prometheus.Counter
	FailuresTotal  *prometheus.CounterVec
	CoursesFetched prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "canvasfind_api_requests_total",
			Help: "Canvas API page requests by outcome.",
		}, []string{"outcome"}), // ok, network, unauthorized, ...
		ItemsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "canvasfind_module_items_total",
			Help: "Module items fetched.",
		}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "canvasfind_failures_total",
			Help: "Fetch failures by scope.",
		}, []string{"scope"}), // course, module
		CoursesFetched: f.NewGauge(prometheus.GaugeOpts{
			Name: "canvasfind_courses_fetched",
			Help: "Courses fetched successfully in the last run.",
		}),
	}
}

func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsTotal.Add(float64(n))
}

func (m *Metrics) IncFailure(scope string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) SetCoursesFetched(n int) {
	if m == nil {
		return
	}
	m.CoursesFetched.Set(float64(n))
}

// WriteTextfile dumps all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
