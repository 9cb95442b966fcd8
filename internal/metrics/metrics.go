// Package metrics exposes the transport's congestion and delivery state
// as Prometheus metrics, modeled on the TCPInfoCollector pattern in
// runZeroInc's go-tcpinfo exporter: a small set of labeled gauge and
// counter vectors, registered once and pushed into by the engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector implements rtp.Metrics, reporting per-connection congestion
// state and counters through Prometheus gauges/counters labeled by
// connection id.
type Collector struct {
	cwnd              *prometheus.GaugeVec
	ssthresh          *prometheus.GaugeVec
	retransmits       *prometheus.CounterVec
	fastRetransmits   *prometheus.CounterVec
	handshakeRetries  *prometheus.CounterVec
	bytesDelivered    *prometheus.CounterVec
}

// NewCollector builds a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cwnd: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rtp",
			Name:      "cwnd",
			Help:      "Current congestion window size in segments.",
		}, []string{"conn"}),
		ssthresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rtp",
			Name:      "ssthresh",
			Help:      "Current slow-start threshold in segments.",
		}, []string{"conn"}),
		retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtp",
			Name:      "retransmits_total",
			Help:      "Segments retransmitted due to the RTO timer firing.",
		}, []string{"conn"}),
		fastRetransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtp",
			Name:      "fast_retransmits_total",
			Help:      "Segments retransmitted on the third duplicate ACK.",
		}, []string{"conn"}),
		handshakeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtp",
			Name:      "handshake_retries_total",
			Help:      "SYN/SYN-ACK retransmissions during connection setup.",
		}, []string{"conn"}),
		bytesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtp",
			Name:      "bytes_delivered_total",
			Help:      "Bytes handed to the application after in-order reassembly.",
		}, []string{"conn"}),
	}

	reg.MustRegister(c.cwnd, c.ssthresh, c.retransmits, c.fastRetransmits,
		c.handshakeRetries, c.bytesDelivered)
	return c
}

func (c *Collector) SetCwnd(id string, v float64)     { c.cwnd.WithLabelValues(id).Set(v) }
func (c *Collector) SetSsthresh(id string, v float64) { c.ssthresh.WithLabelValues(id).Set(v) }
func (c *Collector) IncRetransmit(id string)          { c.retransmits.WithLabelValues(id).Inc() }
func (c *Collector) IncFastRetransmit(id string)      { c.fastRetransmits.WithLabelValues(id).Inc() }
func (c *Collector) IncHandshakeRetry(id string)      { c.handshakeRetries.WithLabelValues(id).Inc() }
func (c *Collector) AddBytesDelivered(id string, n int) {
	c.bytesDelivered.WithLabelValues(id).Add(float64(n))
}
