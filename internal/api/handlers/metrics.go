package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/links"
)

// MetricsHandler serves the Prometheus registry, including store sizes and today's counters.
type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler registers the store collector with reg and serves everything in reg.
func NewMetricsHandler(reg *prometheus.Registry, linkSvc *links.Service, tracker *analytics.Service) *MetricsHandler {
	reg.MustRegister(newStoreCollector(linkSvc, tracker))
	return &MetricsHandler{handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// storeCollector reads the link store and analytics on every scrape.
type storeCollector struct {
	links     *links.Service
	analytics *analytics.Service

	up         *prometheus.Desc
	shortLinks *prometheus.Desc
	today      *prometheus.Desc
}

func newStoreCollector(linkSvc *links.Service, tracker *analytics.Service) *storeCollector {
	return &storeCollector{
		links:      linkSvc,
		analytics:  tracker,
		up:         prometheus.NewDesc("qrlink_up", "Is the server up", nil, nil),
		shortLinks: prometheus.NewDesc("qrlink_short_links", "Number of stored short links", nil, nil),
		today:      prometheus.NewDesc("qrlink_today", "Counters for the current day", []string{"counter"}, nil),
	}
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.shortLinks
	ch <- c.today
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if all, err := c.links.List(ctx); err != nil {
		ch <- prometheus.NewInvalidMetric(c.shortLinks, err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.shortLinks, prometheus.GaugeValue, float64(len(all)))
	}

	totals, err := c.analytics.Totals(1)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.today, err)
		return
	}
	for name, v := range map[string]int{
		"visits":    totals.Today.Visits,
		"uniques":   totals.Today.Uniques,
		"downloads": totals.Today.Downloads,
		"uploads":   totals.Today.Uploads,
	} {
		ch <- prometheus.MustNewConstMetric(c.today, prometheus.GaugeValue, float64(v), name)
	}
}
