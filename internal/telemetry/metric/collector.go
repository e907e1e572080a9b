package metric

import (
	"crypto/tls"

	"github.com/prometheus/client_golang/prometheus"
)

// TLSMaterial is the part of a TLS context the collector reports on.
type TLSMaterial interface {
	Identity() tls.Certificate
	TrustedCount() int
}

// TLSCollector reports the client certificate expiry and the number of
// trust anchors of a built TLS context.
type TLSCollector struct {
	material TLSMaterial

	certExpiry *prometheus.Desc
	anchors    *prometheus.Desc
}

// NewTLSCollector creates a collector for material.
func NewTLSCollector(material TLSMaterial) *TLSCollector {
	return &TLSCollector{
		material: material,
		certExpiry: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tls", "client_cert_expiry_timestamp_seconds"),
			"NotAfter of the client certificate, as a Unix timestamp.",
			[]string{"subject"}, nil,
		),
		anchors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tls", "trust_anchors"),
			"Certificates loaded from the truststore.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *TLSCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.certExpiry
	ch <- c.anchors
}

// Collect implements prometheus.Collector.
func (c *TLSCollector) Collect(ch chan<- prometheus.Metric) {
	if leaf := c.material.Identity().Leaf; leaf != nil {
		ch <- prometheus.MustNewConstMetric(c.certExpiry, prometheus.GaugeValue,
			float64(leaf.NotAfter.Unix()), leaf.Subject.String())
	}
	ch <- prometheus.MustNewConstMetric(c.anchors, prometheus.GaugeValue,
		float64(c.material.TrustedCount()))
}
