package camera

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/polarlab/polarcam/polar"
)

// Metrics are the Prometheus collectors updated by an HTTPCamera.  A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Frames    prometheus.Counter
	Processed *prometheus.CounterVec
	Errors    *prometheus.CounterVec
	Acquire   prometheus.Histogram
	Process   prometheus.Histogram
	MeanDoLP  prometheus.Gauge
	MeanAoLP  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "polarcam",
			Name:      "frames_acquired_total",
			Help:      "Frames taken from the device's stream.",
		}),
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "polarcam",
			Name:      "frames_processed_total",
			Help:      "Frames converted to an output image, by mode.",
		}, []string{"mode"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "polarcam",
			Name:      "errors_total",
			Help:      "Failed requests, by the stage that failed.",
		}, []string{"stage"}),
		Acquire: prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: "polarcam",
			Name:      "acquire_seconds",
			Help:      "Time spent waiting for a frame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		Process: prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: "polarcam",
			Name:      "process_seconds",
			Help:      "Time spent converting a frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		MeanDoLP: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "polarcam",
			Name:      "mean_dolp",
			Help:      "Mean degree of linear polarization of the last /stats frame.",
		}),
		MeanAoLP: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "polarcam",
			Name:      "mean_aolp_degrees",
			Help:      "Circular mean angle of linear polarization of the last /stats frame.",
		}),
	}
	for _, c := range []prometheus.Collector{m.Frames, m.Processed, m.Errors, m.Acquire, m.Process, m.MeanDoLP, m.MeanAoLP} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) acquired(d time.Duration) {
	if m == nil {
		return
	}
	m.Frames.Inc()
	m.Acquire.Observe(d.Seconds())
}

func (m *Metrics) processed(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.Processed.WithLabelValues(mode).Inc()
	m.Process.Observe(d.Seconds())
}

func (m *Metrics) failed(stage string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(stage).Inc()
}

func (m *Metrics) summarized(s polar.Summary) {
	if m == nil {
		return
	}
	m.MeanDoLP.Set(s.MeanDoLP)
	m.MeanAoLP.Set(s.MeanAoLP)
}
