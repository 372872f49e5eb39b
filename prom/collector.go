// Package prom exports StripedMap statistics as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/llxisdsh/cds"
)

const (
	namespace = "cds"
	subsystem = "map"
)

// StatsSource is anything that reports map statistics, typically a
// *cds.StripedMap.
type StatsSource interface {
	Stats() *cds.MapStats
}

// MapCollector is a prometheus.Collector that reads the statistics of one
// map at scrape time. Every metric carries a "map" label holding the name
// the collector was created with.
type MapCollector struct {
	src StatsSource

	entries    *prometheus.Desc
	buckets    *prometheus.Desc
	maxEntries *prometheus.Desc
	empty      *prometheus.Desc
	poisoned   *prometheus.Desc
	growths    *prometheus.Desc
	clears     *prometheus.Desc
}

var _ prometheus.Collector = (*MapCollector)(nil)

// NewMapCollector creates a collector for src. constLabels are added to
// every metric next to the "map" label and may be nil.
func NewMapCollector(name string, src StatsSource, constLabels prometheus.Labels) *MapCollector {
	labels := prometheus.Labels{"map": name}
	for k, v := range constLabels {
		labels[k] = v
	}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, metric),
			help, nil, labels)
	}
	return &MapCollector{
		src:        src,
		entries:    desc("entries", "Number of entries stored in the map."),
		buckets:    desc("buckets", "Number of buckets in the current bucket array."),
		maxEntries: desc("max_bucket_entries", "Number of entries in the fullest bucket."),
		empty:      desc("empty_buckets", "Number of buckets holding no entries."),
		poisoned:   desc("poisoned_buckets", "Number of buckets poisoned by a panicking writer."),
		growths:    desc("growths_total", "Number of times the bucket array doubled."),
		clears:     desc("clears_total", "Number of times the map was cleared."),
	}
}

// Describe implements prometheus.Collector.
func (c *MapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.buckets
	ch <- c.maxEntries
	ch <- c.empty
	ch <- c.poisoned
	ch <- c.growths
	ch <- c.clears
}

// Collect implements prometheus.Collector.
func (c *MapCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(s.Buckets))
	ch <- prometheus.MustNewConstMetric(c.maxEntries, prometheus.GaugeValue, float64(s.MaxEntries))
	ch <- prometheus.MustNewConstMetric(c.empty, prometheus.GaugeValue, float64(s.EmptyBuckets))
	ch <- prometheus.MustNewConstMetric(c.poisoned, prometheus.GaugeValue, float64(s.PoisonedBuckets))
	ch <- prometheus.MustNewConstMetric(c.growths, prometheus.CounterValue, float64(s.TotalGrowths))
	ch <- prometheus.MustNewConstMetric(c.clears, prometheus.CounterValue, float64(s.TotalClears))
}
