package logger

import (
	"sync"
	"time"
)

// ProgressTracker logs periodic progress for long-running operations such as
// a reconciliation pass over a large transaction set.
type ProgressTracker struct {
	logger      Logger
	operation   string
	total       int64
	current     int64
	startTime   time.Time
	lastLogTime time.Time
	logInterval time.Duration
	mutex       sync.Mutex
}

// NewProgressTracker creates a tracker that logs at most once per interval.
// An interval of zero defaults to five seconds.
func NewProgressTracker(operation string, total int64, interval time.Duration) *ProgressTracker {
	if interval == 0 {
		interval = 5 * time.Second
	}

	tracker := &ProgressTracker{
		logger:      GetGlobalLogger().WithComponent("progress"),
		operation:   operation,
		total:       total,
		startTime:   time.Now(),
		lastLogTime: time.Now(),
		logInterval: interval,
	}

	tracker.logger.WithFields(Fields{
		"operation": operation,
		"total":     total,
	}).Debug("Starting operation")

	return tracker
}

// Increment advances the counter by one and logs when the interval has passed.
func (p *ProgressTracker) Increment() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.current++
	now := time.Now()
	if now.Sub(p.lastLogTime) < p.logInterval {
		return
	}
	p.lastLogTime = now

	percent := float64(0)
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total) * 100
	}

	p.logger.WithFields(Fields{
		"operation": p.operation,
		"current":   p.current,
		"total":     p.total,
		"percent":   percent,
	}).Info("Operation in progress")
}

// Done logs a completion summary with the elapsed duration.
func (p *ProgressTracker) Done() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.logger.WithFields(Fields{
		"operation": p.operation,
		"processed": p.current,
		"elapsed":   time.Since(p.startTime).String(),
	}).Info("Operation completed")
}
