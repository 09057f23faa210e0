package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"openaigateway/internal/core"
)

// qpsWindow is the trailing window the live QPS figure is computed over.
const qpsWindow = 60

// MetricsConfig configuration for MetricsService
type MetricsConfig struct {
	SaveInterval time.Duration
	HistorySize  int
	Storage      core.StorageInterface
	Logger       core.Logger
}

// MetricsService keeps the completion history behind /api/stats and forwards
// gateway events to the Prometheus collector.
type MetricsService struct {
	*Collector

	storage      core.StorageInterface
	logger       core.Logger
	saveInterval time.Duration

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	latencyMs atomic.Int64

	mu          sync.Mutex
	history     []core.RequestRecord
	next        int
	wrapped     bool
	lastRequest time.Time
	lastSave    time.Time
	perSecond   [qpsWindow]secondCount

	closeOnce sync.Once
	closeErr  error
}

type secondCount struct {
	unix  int64
	count int64
}

// NewMetricsService creates a service whose history holds the latest
// HistorySize completions.
func NewMetricsService(config MetricsConfig) *MetricsService {
	if config.Logger == nil {
		config.Logger = &core.NopLogger{}
	}
	if config.HistorySize <= 0 {
		config.HistorySize = core.HistoryBufferSize
	}
	return &MetricsService{
		Collector:    NewCollector(),
		storage:      config.Storage,
		logger:       config.Logger,
		saveInterval: config.SaveInterval,
		history:      make([]core.RequestRecord, 0, config.HistorySize),
	}
}

// RecordCompletion records one chat completion that started at start.
// backend is -1 when the request failed before a backend was resolved.
func (ms *MetricsService) RecordCompletion(start time.Time, model string, backend int, success bool) {
	ms.RecordRequest(success, time.Since(start).Milliseconds(), model, backend)
}

// RecordRequest records a completion result with its latency in milliseconds.
func (ms *MetricsService) RecordRequest(success bool, responseTime int64, model string, backend int) {
	ms.total.Add(1)
	ms.latencyMs.Add(responseTime)
	if success {
		ms.succeeded.Add(1)
	} else {
		ms.failed.Add(1)
	}

	now := time.Now()
	ms.mu.Lock()
	ms.lastRequest = now
	ms.appendLocked(core.RequestRecord{
		Timestamp:    now,
		Success:      success,
		ResponseTime: responseTime,
		Model:        model,
		Backend:      backend,
	})
	ms.countLocked(now)
	due := now.Sub(ms.lastSave) >= ms.saveInterval
	if due {
		ms.lastSave = now
	}
	ms.mu.Unlock()

	if due {
		ms.persist()
	}
}

func (ms *MetricsService) appendLocked(record core.RequestRecord) {
	if len(ms.history) < cap(ms.history) {
		ms.history = append(ms.history, record)
		return
	}
	ms.history[ms.next] = record
	ms.next = (ms.next + 1) % len(ms.history)
	ms.wrapped = true
}

func (ms *MetricsService) countLocked(now time.Time) {
	sec := now.Unix()
	slot := &ms.perSecond[sec%qpsWindow]
	if slot.unix != sec {
		slot.unix = sec
		slot.count = 0
	}
	slot.count++
}

// historyLocked returns the history oldest first.
func (ms *MetricsService) historyLocked() []core.RequestRecord {
	out := make([]core.RequestRecord, 0, len(ms.history))
	if ms.wrapped {
		out = append(out, ms.history[ms.next:]...)
		return append(out, ms.history[:ms.next]...)
	}
	return append(out, ms.history...)
}

// GetQPS returns the request rate over the last minute.
func (ms *MetricsService) GetQPS() float64 {
	cutoff := time.Now().Unix() - qpsWindow
	var n int64

	ms.mu.Lock()
	for _, slot := range ms.perSecond {
		if slot.unix > cutoff {
			n += slot.count
		}
	}
	ms.mu.Unlock()

	return math.Round(float64(n)/qpsWindow*1000) / 1000
}

// GetRequestStats returns a copy of the counters and the history.
func (ms *MetricsService) GetRequestStats() core.RequestStats {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return core.RequestStats{
		TotalRequests:      ms.total.Load(),
		SuccessfulRequests: ms.succeeded.Load(),
		FailedRequests:     ms.failed.Load(),
		TotalResponseTime:  ms.latencyMs.Load(),
		LastRequestTime:    ms.lastRequest,
		RequestHistory:     ms.historyLocked(),
	}
}

// GetPeriodStats summarizes history over each trailing window of hours, keyed by hours.
func GetPeriodStats(history []core.RequestRecord, hourPeriods ...int) map[int]core.PeriodStats {
	if len(hourPeriods) == 0 {
		return nil
	}

	now := time.Now()
	result := make(map[int]core.PeriodStats, len(hourPeriods))
	for _, hours := range hourPeriods {
		cutoff := now.Add(-time.Duration(hours) * time.Hour)
		var requests, successful, latency int64
		for _, record := range history {
			if !record.Timestamp.After(cutoff) {
				continue
			}
			requests++
			latency += record.ResponseTime
			if record.Success {
				successful++
			}
		}

		stats := core.PeriodStats{
			Requests: requests,
			QPS:      float64(requests) / (float64(hours) * 3600),
		}
		if requests > 0 {
			stats.SuccessRate = float64(successful) / float64(requests) * 100
			stats.AvgResponseTime = latency / requests
		}
		result[hours] = stats
	}
	return result
}

// BackendCounts aggregates the recorded history per backend index.
func BackendCounts(history []core.RequestRecord) map[int]int64 {
	counts := make(map[int]int64)
	for _, record := range history {
		counts[record.Backend]++
	}
	return counts
}

// LoadStats restores counters and history from storage.
func (ms *MetricsService) LoadStats() error {
	if ms.storage == nil {
		return nil
	}
	stats, err := ms.storage.LoadStats()
	if err != nil {
		return err
	}

	ms.total.Store(stats.TotalRequests)
	ms.succeeded.Store(stats.SuccessfulRequests)
	ms.failed.Store(stats.FailedRequests)
	ms.latencyMs.Store(stats.TotalResponseTime)

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.lastRequest = stats.LastRequestTime
	ms.history = ms.history[:0]
	ms.next = 0
	ms.wrapped = false
	for _, record := range stats.RequestHistory {
		ms.appendLocked(record)
	}
	return nil
}

func (ms *MetricsService) persist() {
	if ms.storage == nil {
		return
	}
	stats := ms.GetRequestStats()
	if err := ms.storage.SaveStats(&stats); err != nil {
		ms.logger.Warn("Failed to save stats: %v", err)
	}
}

// Close saves the final stats. Later calls return the first result.
func (ms *MetricsService) Close() error {
	ms.closeOnce.Do(func() {
		if ms.storage == nil {
			return
		}
		stats := ms.GetRequestStats()
		ms.closeErr = ms.storage.SaveStats(&stats)
	})
	return ms.closeErr
}
