package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ziadkadry99/docswitch/internal/router"
)

// Metrics holds the docswitch Prometheus collectors on an isolated registry,
// so each server (and each test) gets its own set.
type Metrics struct {
	Registry *prometheus.Registry

	// Placeholder resolutions by outcome: hit, miss, document.
	ResolutionsTotal *prometheus.CounterVec
	RendersTotal     prometheus.Counter
	RenderDuration   prometheus.Histogram

	TableEntries  prometheus.Gauge
	TableReloads  *prometheus.CounterVec
	ReloadClients prometheus.Gauge
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		Registry: reg,
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docswitch_resolutions_total",
				Help: "Placeholder resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		RendersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docswitch_renders_total",
			Help: "Render passes completed.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docswitch_render_duration_seconds",
			Help:    "Time spent in one render pass.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		TableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docswitch_table_entries",
			Help: "Entries in the loaded replacement table.",
		}),
		TableReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docswitch_table_reloads_total",
				Help: "Table reload attempts by result.",
			},
			[]string{"result"},
		),
		ReloadClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docswitch_reload_clients",
			Help: "Browsers connected to the reload channel.",
		}),
	}

	reg.MustRegister(
		m.ResolutionsTotal,
		m.RendersTotal,
		m.RenderDuration,
		m.TableEntries,
		m.TableReloads,
		m.ReloadClients,
	)
	return m
}

// ObserveRender records one render pass.
func (m *Metrics) ObserveRender(rep router.Report) {
	m.RendersTotal.Inc()
	m.RenderDuration.Observe(rep.Duration.Seconds())
	m.ResolutionsTotal.WithLabelValues("hit").Add(float64(rep.Hits))
	m.ResolutionsTotal.WithLabelValues("miss").Add(float64(rep.Misses))
	m.ResolutionsTotal.WithLabelValues("document").Add(float64(rep.Documents))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
