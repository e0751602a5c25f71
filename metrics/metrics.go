// Package metrics exposes Prometheus collectors for the timer service and the
// checkpoint store. A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for the time domain of a timer.
const (
	EventTime      = "event_time"
	ProcessingTime = "processing_time"
)

// Collector stores and manages the timer metrics.
type Collector struct {
	timersRegistered *prometheus.CounterVec
	timersFired      *prometheus.CounterVec
	timersPending    *prometheus.GaugeVec
	snapshotsTaken   prometheus.Counter
	restoreFailures  *prometheus.CounterVec
	checkpointBytes  prometheus.Histogram
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		timersRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timers_registered_total",
			Help: "Total number of timers registered",
		}, []string{"domain"}),
		timersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timers_fired_total",
			Help: "Total number of timers fired",
		}, []string{"domain"}),
		timersPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timers_pending",
			Help: "Number of timers waiting to fire",
		}, []string{"domain"}),
		snapshotsTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timer_snapshots_total",
			Help: "Total number of timer snapshots taken",
		}),
		restoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timer_restore_failures_total",
			Help: "Total number of failed timer restores by reason",
		}, []string{"reason"}),
		checkpointBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timer_checkpoint_bytes",
			Help:    "Size of written timer checkpoints",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}

	reg.MustRegister(
		c.timersRegistered,
		c.timersFired,
		c.timersPending,
		c.snapshotsTaken,
		c.restoreFailures,
		c.checkpointBytes,
	)
	return c
}

func (c *Collector) TimerRegistered(domain string) {
	if c == nil {
		return
	}
	c.timersRegistered.WithLabelValues(domain).Inc()
}

func (c *Collector) TimerFired(domain string) {
	if c == nil {
		return
	}
	c.timersFired.WithLabelValues(domain).Inc()
}

func (c *Collector) SetPending(domain string, n int) {
	if c == nil {
		return
	}
	c.timersPending.WithLabelValues(domain).Set(float64(n))
}

func (c *Collector) SnapshotTaken() {
	if c == nil {
		return
	}
	c.snapshotsTaken.Inc()
}

func (c *Collector) RestoreFailed(reason string) {
	if c == nil {
		return
	}
	c.restoreFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) CheckpointWritten(size int) {
	if c == nil {
		return
	}
	c.checkpointBytes.Observe(float64(size))
}
