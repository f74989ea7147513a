package sprite

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "sprite"

// Collector is a prometheus.Collector that collects metrics about a
// Manager. A nil *Collector records nothing.
type Collector struct {
	images               prometheus.Gauge
	imageBytes           prometheus.Gauge
	atlasBytes           prometheus.Gauge
	requestors           prometheus.Gauge
	missingNotifications prometheus.Counter
	deliveries           *prometheus.CounterVec
	evictionCandidates   prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		images: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "images",
				Help:      "The number of images in the store.",
			},
		),
		imageBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "image_bytes",
				Help:      "The total size of stored bitmaps in bytes.",
			},
		),
		atlasBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "atlas_bytes",
				Help:      "The size of the packed atlas buffer in bytes.",
			},
		),
		requestors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "requestors",
				Help:      "The number of open image requestors.",
			},
		),
		missingNotifications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "missing_notifications_total",
				Help:      "The number of missing-image notifications sent to the observer.",
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "deliveries_total",
				Help:      "The number of resolved dependency sets, by outcome.",
			}, []string{"outcome"},
		),
		evictionCandidates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "eviction_candidates_total",
				Help:      "The number of unused images offered for removal.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.images.Describe(ch)
	c.imageBytes.Describe(ch)
	c.atlasBytes.Describe(ch)
	c.requestors.Describe(ch)
	c.missingNotifications.Describe(ch)
	c.deliveries.Describe(ch)
	c.evictionCandidates.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.images.Collect(ch)
	c.imageBytes.Collect(ch)
	c.atlasBytes.Collect(ch)
	c.requestors.Collect(ch)
	c.missingNotifications.Collect(ch)
	c.deliveries.Collect(ch)
	c.evictionCandidates.Collect(ch)
}

const (
	outcomeDelivered = "delivered"
	outcomeStale     = "stale"
)

func (c *Collector) setStore(images int, imageBytes int64, atlasBytes int) {
	if c == nil {
		return
	}
	c.images.Set(float64(images))
	c.imageBytes.Set(float64(imageBytes))
	c.atlasBytes.Set(float64(atlasBytes))
}

func (c *Collector) setRequestors(n int) {
	if c == nil {
		return
	}
	c.requestors.Set(float64(n))
}

func (c *Collector) missing() {
	if c == nil {
		return
	}
	c.missingNotifications.Inc()
}

func (c *Collector) delivery(outcome string) {
	if c == nil {
		return
	}
	c.deliveries.WithLabelValues(outcome).Inc()
}

func (c *Collector) evictable(n int) {
	if c == nil {
		return
	}
	c.evictionCandidates.Add(float64(n))
}
