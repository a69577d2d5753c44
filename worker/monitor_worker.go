package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"csatguardian/logger"
	"csatguardian/service"
)

// MonitorWorker is a background worker that periodically sweeps all active
// cases through the monitoring engine. Overlapping cycles are safe: the
// engine serializes evaluation per case.
type MonitorWorker struct {
	monitorService *service.MonitorService
	interval       time.Duration
	stopChan       chan struct{}
	running        atomic.Bool
	log            *logrus.Entry
}

// NewMonitorWorker creates a new monitor worker
func NewMonitorWorker(
	monitorService *service.MonitorService,
	interval time.Duration,
	log *logger.Logger,
) *MonitorWorker {
	return &MonitorWorker{
		monitorService: monitorService,
		interval:       interval,
		stopChan:       make(chan struct{}),
		log:            log.WithComponent("monitor_worker"),
	}
}

// Start starts the monitor worker.
// The worker runs in a separate goroutine and sweeps cases periodically.
func (w *MonitorWorker) Start() {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Warn("monitor worker is already running")
		return
	}

	w.log.WithField("interval", w.interval.String()).Info("monitor worker started")

	go w.run()
}

// Stop stops the monitor worker
func (w *MonitorWorker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}

	close(w.stopChan)
	w.log.Info("monitor worker stopped")
}

// IsRunning reports whether the worker loop is active
func (w *MonitorWorker) IsRunning() bool {
	return w.running.Load()
}

// Interval returns the sweep interval
func (w *MonitorWorker) Interval() time.Duration {
	return w.interval
}

// run is the main worker loop
func (w *MonitorWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			return
		}
	}
}

// sweep evaluates every active case once. Safe to call repeatedly: an
// unchanged case emits nothing.
func (w *MonitorWorker) sweep() {
	startTime := time.Now()

	results, err := w.monitorService.EvaluateActiveCases(context.Background())
	if err != nil {
		w.log.WithError(err).Error("monitoring sweep failed")
		return
	}

	emitted := 0
	resolved := 0
	for _, r := range results {
		emitted += len(r.AlertsEmitted)
		resolved += len(r.AlertsResolved)
	}

	w.log.WithFields(logrus.Fields{
		"cases":    len(results),
		"emitted":  emitted,
		"resolved": resolved,
		"duration": time.Since(startTime).String(),
	}).Info("monitoring sweep completed")
}
