package performance

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StageRecord is the timing of one finished pipeline stage.
type StageRecord struct {
	Stage    string
	Duration time.Duration
	Failed   bool
}

// StageTimer tracks timing for an individual stage
type StageTimer struct {
	Stage     string
	StartTime time.Time
}

// PerformanceMonitor records how long each stage of a run takes
type PerformanceMonitor struct {
	logger        *zap.Logger
	now           func() time.Time
	mu            sync.RWMutex
	records       []StageRecord
	audioDuration float64
	transcribe    time.Duration
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor(logger *zap.Logger) *PerformanceMonitor {
	return &PerformanceMonitor{
		logger: logger,
		now:    time.Now,
	}
}

// StartStage begins timing a stage
func (pm *PerformanceMonitor) StartStage(stage string) *StageTimer {
	return &StageTimer{Stage: stage, StartTime: pm.now()}
}

// EndStage completes timing and records the stage outcome
func (pm *PerformanceMonitor) EndStage(timer *StageTimer, err error) StageRecord {
	record := StageRecord{
		Stage:    timer.Stage,
		Duration: pm.now().Sub(timer.StartTime),
		Failed:   err != nil,
	}

	pm.mu.Lock()
	pm.records = append(pm.records, record)
	pm.mu.Unlock()

	pm.logger.Debug("stage timing",
		zap.String("stage", record.Stage),
		zap.Duration("duration", record.Duration),
		zap.Bool("failed", record.Failed))

	return record
}

// RecordTranscription notes the audio length covered by a transcription and
// how long inference took, for the real-time factor.
func (pm *PerformanceMonitor) RecordTranscription(audioSeconds float64, took time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.audioDuration = audioSeconds
	pm.transcribe = took
}

// RealTimeFactor returns inference time divided by audio duration. Values
// below 1 mean faster than real time. Zero when nothing was recorded.
func (pm *PerformanceMonitor) RealTimeFactor() float64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.audioDuration <= 0 {
		return 0
	}
	return pm.transcribe.Seconds() / pm.audioDuration
}

// Records returns a copy of the finished stages in completion order
func (pm *PerformanceMonitor) Records() []StageRecord {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]StageRecord, len(pm.records))
	copy(out, pm.records)
	return out
}

// Total returns the summed duration of every recorded stage
func (pm *PerformanceMonitor) Total() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	var total time.Duration
	for _, r := range pm.records {
		total += r.Duration
	}
	return total
}

// GetPerformanceSummary returns a one-line, human-readable summary
func (pm *PerformanceMonitor) GetPerformanceSummary() string {
	records := pm.Records()
	if len(records) == 0 {
		return "no stages recorded"
	}
	parts := make([]string, 0, len(records))
	for _, r := range records {
		status := ""
		if r.Failed {
			status = " (failed)"
		}
		parts = append(parts, fmt.Sprintf("%s=%s%s", r.Stage, r.Duration.Round(time.Millisecond), status))
	}
	summary := strings.Join(parts, ", ") + fmt.Sprintf(" total=%s", pm.Total().Round(time.Millisecond))
	if rtf := pm.RealTimeFactor(); rtf > 0 {
		summary += fmt.Sprintf(" rtf=%.2f", rtf)
	}
	return summary
}

// LogCurrentMetrics logs the summary at info level
func (pm *PerformanceMonitor) LogCurrentMetrics() {
	pm.logger.Info("run performance",
		zap.Int("stages", len(pm.Records())),
		zap.Duration("total", pm.Total()),
		zap.Float64("real_time_factor", pm.RealTimeFactor()))
}
