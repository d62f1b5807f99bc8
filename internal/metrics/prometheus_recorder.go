package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagesmith"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	pageDuration    *prom.HistogramVec
	pageResults     *prom.CounterVec
	rebuilds        *prom.CounterVec
	rebuiltPages    *prom.CounterVec
	rebuildFailures *prom.CounterVec
	scanDuration    prom.Histogram
	templates       prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.pageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_build_duration_seconds",
			Help:      "Duration of single page builds",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.pageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_builds_total",
			Help:      "Page builds by kind and result",
		}, []string{"kind", "result"})
		pr.rebuilds = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Incremental rebuild batches by change source",
		}, []string{"source"})
		pr.rebuiltPages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilt_pages_total",
			Help:      "Pages written by incremental rebuilds",
		}, []string{"source"})
		pr.rebuildFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_failures_total",
			Help:      "Incremental rebuild batches that reported an error",
		}, []string{"source"})
		pr.scanDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Duration of dependency scans",
			Buckets:   prom.DefBuckets,
		})
		pr.templates = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_templates",
			Help:      "Templates found by the last dependency scan",
		})
		reg.MustRegister(pr.pageDuration, pr.pageResults, pr.rebuilds, pr.rebuiltPages, pr.rebuildFailures, pr.scanDuration, pr.templates)
	})
	return pr
}

func (p *PrometheusRecorder) ObservePageBuild(kind string, d time.Duration, ok bool) {
	if p == nil || p.pageDuration == nil {
		return
	}
	res := "failed"
	if ok {
		res = "success"
	}
	p.pageDuration.WithLabelValues(kind).Observe(d.Seconds())
	p.pageResults.WithLabelValues(kind, res).Inc()
}

func (p *PrometheusRecorder) IncRebuild(source string, pages int) {
	if p == nil || p.rebuilds == nil {
		return
	}
	p.rebuilds.WithLabelValues(source).Inc()
	p.rebuiltPages.WithLabelValues(source).Add(float64(pages))
}

func (p *PrometheusRecorder) IncRebuildFailure(source string) {
	if p == nil || p.rebuildFailures == nil {
		return
	}
	p.rebuildFailures.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) ObserveScan(d time.Duration, templates int) {
	if p == nil || p.scanDuration == nil {
		return
	}
	p.scanDuration.Observe(d.Seconds())
	p.templates.Set(float64(templates))
}

// HTTPHandler serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
