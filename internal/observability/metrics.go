package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

const metricsNamespace = "stimulus"

// PresentationMetrics collects per-run presentation counters on its own
// registry. It implements presentation.Observer.
type PresentationMetrics struct {
	registry *prometheus.Registry

	frames        *prometheus.CounterVec
	frameInterval *prometheus.HistogramVec
	responses     *prometheus.CounterVec
	repetitions   *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

var _ presentation.Observer = (*PresentationMetrics)(nil)

// NewPresentationMetrics creates and registers the collectors.
func NewPresentationMetrics() *PresentationMetrics {
	m := &PresentationMetrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_presented_total",
			Help:      "Frames presented, by stimulus type.",
		}, []string{"spec_type"}),
		frameInterval: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "frame_interval_seconds",
			Help:      "Wall time between consecutive presented frames.",
			Buckets:   []float64{0.004, 0.008, 0.0167, 0.025, 0.0334, 0.05, 0.1, 0.25},
		}, []string{"spec_type"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "responses_total",
			Help:      "Key responses recorded, by stimulus type and key.",
		}, []string{"spec_type", "key"}),
		repetitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "repetitions_total",
			Help:      "Repetitions finished, by stimulus type.",
		}, []string{"spec_type"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Presentation runs, by stimulus type and final state.",
		}, []string{"spec_type", "state"}),
	}
	m.registry.MustRegister(m.frames, m.frameInterval, m.responses, m.repetitions, m.runs)
	return m
}

// Registry exposes the private registry, for gathering or serving.
func (m *PresentationMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *PresentationMetrics) FramePresented(kind stimulus.Kind, interval time.Duration) {
	m.frames.WithLabelValues(string(kind)).Inc()
	m.frameInterval.WithLabelValues(string(kind)).Observe(interval.Seconds())
}

func (m *PresentationMetrics) ResponseRecorded(kind stimulus.Kind, key stimulus.Key) {
	m.responses.WithLabelValues(string(kind), key.String()).Inc()
}

func (m *PresentationMetrics) RepetitionFinished(kind stimulus.Kind, _ int) {
	m.repetitions.WithLabelValues(string(kind)).Inc()
}

func (m *PresentationMetrics) RunFinished(kind stimulus.Kind, state presentation.State) {
	m.runs.WithLabelValues(string(kind), string(state)).Inc()
}

// WriteTextfile writes the current values in the node exporter textfile
// format, creating the parent directory if needed.
func (m *PresentationMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
