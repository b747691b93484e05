package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// StatsSource reports store counters.
type StatsSource interface {
	Stats() memory.Stats
}

// StoreCollector exports store statistics, read at scrape time.
type StoreCollector struct {
	src StatsSource

	keys    *prometheus.Desc
	pending *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	expired *prometheus.Desc
}

// NewStoreCollector creates a collector for src.
func NewStoreCollector(src StatsSource) *StoreCollector {
	return &StoreCollector{
		src:     src,
		keys:    prometheus.NewDesc(namespace+"_keys", "Keys currently stored, including expired keys not yet removed", nil, nil),
		pending: prometheus.NewDesc(namespace+"_expiry_queue_length", "Deadlines waiting in the expiry queue", nil, nil),
		hits:    prometheus.NewDesc(namespace+"_keyspace_hits_total", "GET commands that found a live key", nil, nil),
		misses:  prometheus.NewDesc(namespace+"_keyspace_misses_total", "GET commands that found no live key", nil, nil),
		expired: prometheus.NewDesc(namespace+"_expired_keys_total", "Keys removed because their deadline passed", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.pending
	ch <- c.hits
	ch <- c.misses
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(st.Pending))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.Expired))
}
