// Package monitor exports the state of a cropper board as Prometheus metrics
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"retrocrop/core"
)

// Source reports the board state
type Source interface {
	Status() (core.Status, error)
	ModeName(mode uint8) string
}

// Metrics holds the exported gauges
type Metrics struct {
	locked         prometheus.Gauge
	mode           prometheus.Gauge
	modeInfo       *prometheus.GaugeVec
	fieldLines     prometheus.Gauge
	fields         prometheus.Gauge
	losses         prometheus.Gauge
	ceilingHits    prometheus.Gauge
	pollErrors     prometheus.Counter
	lastUpdate     prometheus.Gauge
	lastModeLabel  string
	lastModeExists bool
}

// NewMetrics registers the metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		locked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_locked",
			Help: "1 while field markers are arriving",
		}),
		mode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_mode",
			Help: "Active crop mode index",
		}),
		modeInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retrocrop_mode_info",
			Help: "Active crop mode by name",
		}, []string{"mode"}),
		fieldLines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_field_lines",
			Help: "Sync pulses counted in the previous field",
		}),
		fields: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_fields",
			Help: "Fields seen since boot",
		}),
		losses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_signal_losses",
			Help: "Signal losses since boot",
		}),
		ceilingHits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_line_ceiling_hits",
			Help: "Fields that ran into the line counter ceiling since boot",
		}),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "retrocrop_poll_errors_total",
			Help: "Failed status polls",
		}),
		lastUpdate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retrocrop_last_update_timestamp_seconds",
			Help: "Unix time of the last successful poll",
		}),
	}
}

// Update publishes one status report
func (m *Metrics) Update(s core.Status, modeName string) {
	if s.Locked {
		m.locked.Set(1)
	} else {
		m.locked.Set(0)
	}
	m.mode.Set(float64(s.Mode))
	m.fieldLines.Set(float64(s.LastFieldLines))
	m.fields.Set(float64(s.Fields))
	m.losses.Set(float64(s.Losses))
	m.ceilingHits.Set(float64(s.CeilingHits))
	m.lastUpdate.SetToCurrentTime()

	if m.lastModeExists && m.lastModeLabel != modeName {
		m.modeInfo.DeleteLabelValues(m.lastModeLabel)
	}
	m.modeInfo.WithLabelValues(modeName).Set(1)
	m.lastModeLabel = modeName
	m.lastModeExists = true
}

// Poll reads the board once and updates the metrics
func (m *Metrics) Poll(src Source) error {
	s, err := src.Status()
	if err != nil {
		m.pollErrors.Inc()
		return err
	}
	m.Update(s, src.ModeName(s.Mode))
	return nil
}

// Run polls src every interval until ctx is done. Poll errors are logged
// and counted; the board may be resetting.
func Run(ctx context.Context, m *Metrics, src Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.Poll(src); err != nil {
			log.Printf("monitor: poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
