// ABOUTME: Prometheus metrics for the streaming engine and the relay
// ABOUTME: Engine stats are collected on scrape, relay counters are updated live
package metrics

import (
	"net/http"

	"github.com/harperreed/wavstream/pkg/wavstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource is anything that reports engine stats
type StatsSource interface {
	Stats() wavstream.Stats
}

// EngineCollector exposes engine stats as Prometheus metrics
type EngineCollector struct {
	source StatsSource

	rendered   *prometheus.Desc
	underruns  *prometheus.Desc
	dropped    *prometheus.Desc
	queued     *prometheus.Desc
	tracks     *prometheus.Desc
	sampleRate *prometheus.Desc
	deviceLost *prometheus.Desc
}

// NewEngineCollector creates a collector reading from source on every scrape
func NewEngineCollector(source StatsSource) *EngineCollector {
	return &EngineCollector{
		source: source,
		rendered: prometheus.NewDesc("wavstream_rendered_frames_total",
			"Frames rendered to the output device", nil, nil),
		underruns: prometheus.NewDesc("wavstream_underruns_total",
			"Render ticks that found the queue empty", nil, nil),
		dropped: prometheus.NewDesc("wavstream_dropped_payloads_total",
			"Payloads that decoded to zero samples", nil, nil),
		queued: prometheus.NewDesc("wavstream_queued_frames",
			"Frames waiting to be rendered", nil, nil),
		tracks: prometheus.NewDesc("wavstream_tracks",
			"Tracks known to the engine", nil, nil),
		sampleRate: prometheus.NewDesc("wavstream_device_sample_rate_hz",
			"Sample rate granted by the output device", nil, nil),
		deviceLost: prometheus.NewDesc("wavstream_device_lost",
			"1 if the output device stopped unexpectedly", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rendered
	ch <- c.underruns
	ch <- c.dropped
	ch <- c.queued
	ch <- c.tracks
	ch <- c.sampleRate
	ch <- c.deviceLost
}

// Collect implements prometheus.Collector
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	lost := 0.0
	if stats.DeviceLost {
		lost = 1
	}

	ch <- prometheus.MustNewConstMetric(c.rendered, prometheus.CounterValue, float64(stats.RenderedFrames))
	ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(stats.Underruns))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(stats.Dropped))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(stats.QueuedFrames))
	ch <- prometheus.MustNewConstMetric(c.tracks, prometheus.GaugeValue, float64(stats.Tracks))
	ch <- prometheus.MustNewConstMetric(c.sampleRate, prometheus.GaugeValue, float64(stats.SampleRate))
	ch <- prometheus.MustNewConstMetric(c.deviceLost, prometheus.GaugeValue, lost)
}

// Message directions used as label values
const (
	Upstream   = "upstream"
	Downstream = "downstream"
)

// RelayMetrics holds the relay counters
type RelayMetrics struct {
	ConnectionsTotal  prometheus.Counter
	ConnectionsActive prometheus.Gauge
	UpstreamErrors    prometheus.Counter
	Messages          *prometheus.CounterVec
	PongsRewritten    prometheus.Counter
}

// NewRelayMetrics registers the relay counters with reg
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	factory := promauto.With(reg)
	return &RelayMetrics{
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavstream_relay_connections_total",
			Help: "Browser connections accepted",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavstream_relay_connections_active",
			Help: "Browser connections currently bridged",
		}),
		UpstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavstream_relay_upstream_errors_total",
			Help: "Failed upstream dials or signed URL lookups",
		}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavstream_relay_messages_total",
			Help: "Messages forwarded by direction",
		}, []string{"direction"}),
		PongsRewritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavstream_relay_pongs_rewritten_total",
			Help: "Pong messages whose event id was fixed up",
		}),
	}
}

// Message counts one forwarded message in direction
func (m *RelayMetrics) Message(direction string) {
	m.Messages.WithLabelValues(direction).Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
