// Package metric provides Prometheus metrics for cfgclient.
//
//   - prometheus.go: registry, /metrics handler, instrumented RoundTripper
//   - collector.go: TLS material gauges (client certificate expiry, anchors)
//
// Metrics are registered on a private registry, never the global one, so a
// process can build more than one client.
package metric
