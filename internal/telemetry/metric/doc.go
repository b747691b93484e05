// Package metric provides Prometheus metrics for respkv.
//
//   - prometheus.go: the Registry, command and connection metrics, /metrics handler
//   - collector.go: keyspace gauges and counters read from the store on scrape
//
// All Registry methods are safe on a nil *Registry, so components can be
// built without metrics in tests.
package metric
