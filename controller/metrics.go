package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversionMetrics counts what a conversion run did. A nil
// *ConversionMetrics is valid and records nothing.
type ConversionMetrics struct {
	registry *prometheus.Registry

	RecordsSeen    prometheus.Counter
	RecordsWritten *prometheus.CounterVec
	RecordsSkipped prometheus.Counter
	ImagesWritten  *prometheus.CounterVec
	RunDuration    prometheus.Gauge
	RunSuccess     prometheus.Gauge
}

// NewConversionMetrics registers the run metrics on a fresh registry. runID is
// attached to every series as a constant label.
func NewConversionMetrics(runID string) *ConversionMetrics {
	labels := prometheus.Labels{"run_id": runID}
	m := &ConversionMetrics{
		registry: prometheus.NewRegistry(),

		RecordsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "records",
			Name:        "seen_total",
			Help:        "Log records pulled from the container",
			ConstLabels: labels,
		}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "records",
			Name:        "written_total",
			Help:        "Records serialized to a sensor output",
			ConstLabels: labels,
		}, []string{"sensor", "kind"}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "records",
			Name:        "skipped_total",
			Help:        "Records whose topic matched no configured sensor",
			ConstLabels: labels,
		}),
		ImagesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "images",
			Name:        "written_total",
			Help:        "Camera images stored",
			ConstLabels: labels,
		}, []string{"sensor"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "run",
			Name:        "duration_seconds",
			Help:        "Wall time of the conversion run",
			ConstLabels: labels,
		}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "dataset_convertor",
			Subsystem:   "run",
			Name:        "success",
			Help:        "1 when the run finished without error, 0 otherwise",
			ConstLabels: labels,
		}),
	}
	m.registry.MustRegister(
		m.RecordsSeen, m.RecordsWritten, m.RecordsSkipped,
		m.ImagesWritten, m.RunDuration, m.RunSuccess,
	)
	return m
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for a node exporter textfile collector.
func (m *ConversionMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *ConversionMetrics) seen() {
	if m != nil {
		m.RecordsSeen.Inc()
	}
}

func (m *ConversionMetrics) skipped() {
	if m != nil {
		m.RecordsSkipped.Inc()
	}
}

func (m *ConversionMetrics) written(sensor, kind string) {
	if m != nil {
		m.RecordsWritten.WithLabelValues(sensor, kind).Inc()
	}
}

func (m *ConversionMetrics) image(sensor string) {
	if m != nil {
		m.ImagesWritten.WithLabelValues(sensor).Inc()
	}
}

func (m *ConversionMetrics) finish(start time.Time, err error) {
	if m == nil {
		return
	}
	m.RunDuration.Set(time.Since(start).Seconds())
	if err == nil {
		m.RunSuccess.Set(1)
	} else {
		m.RunSuccess.Set(0)
	}
}
