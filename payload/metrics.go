package payload

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors a Payload updates.
type Metrics struct {
	enableFaults *prometheus.CounterVec
	readFaults   *prometheus.CounterVec
	reads        *prometheus.CounterVec
	reinits      prometheus.Counter
	enabled      prometheus.Gauge
}

// NewMetrics builds the payload collectors and registers them with reg. A nil
// reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enableFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_enable_faults_total",
				Help: "Channel enable requests the IMU rejected.",
			},
			[]string{"channel"},
		),
		readFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_read_faults_total",
				Help: "Channel reads that fell back to the cached value.",
			},
			[]string{"channel"},
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_reads_total",
				Help: "Channel reads sent to the IMU.",
			},
			[]string{"channel"},
		),
		reinits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payload_reinit_total",
			Help: "IMU reinitializations after a configuration change.",
		}),
		enabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payload_enabled_channels",
			Help: "Distinct channels in the enabled channel list.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.enableFaults, m.readFaults, m.reads, m.reinits, m.enabled)
	}
	return m
}
