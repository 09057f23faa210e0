package metrics

import (
	"sync"
	"testing"
	"time"

	"openaigateway/internal/core"
)

type countingStorage struct {
	mu        sync.Mutex
	saveCount int
}

func (s *countingStorage) SaveStats(_ *core.RequestStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCount++
	return nil
}

func (s *countingStorage) LoadStats() (*core.RequestStats, error) {
	return &core.RequestStats{}, nil
}

func (s *countingStorage) SaveSettings(_ *core.Settings) error { return nil }

func (s *countingStorage) LoadSettings() (*core.Settings, error) { return nil, nil }

func (s *countingStorage) Close() error { return nil }

func (s *countingStorage) getSaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}

func newTestService(t *testing.T, historySize int, st core.StorageInterface) *MetricsService {
	t.Helper()
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Hour,
		HistorySize:  historySize,
		Storage:      st,
		Logger:       &core.NopLogger{},
	})
	t.Cleanup(func() { _ = ms.Close() })
	return ms
}

func TestMetricsService_RecordRequest(t *testing.T) {
	ms := newTestService(t, 10, nil)

	ms.RecordRequest(true, 100, "gpt-4", 0)
	ms.RecordRequest(false, 200, "gpt-4", 1)
	ms.RecordRequest(true, 150, "llama3", 0)

	stats := ms.GetRequestStats()
	if stats.TotalRequests != 3 {
		t.Errorf("Expected 3 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 2 {
		t.Errorf("Expected 2 successful requests, got %d", stats.SuccessfulRequests)
	}
	if stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
	if stats.TotalResponseTime != 450 {
		t.Errorf("Expected 450ms total, got %d", stats.TotalResponseTime)
	}
	if len(stats.RequestHistory) != 3 || stats.LastRequestTime.IsZero() {
		t.Errorf("Unexpected history: %+v", stats)
	}
}

func TestMetricsService_GetQPS(t *testing.T) {
	ms := newTestService(t, 10, nil)
	if qps := ms.GetQPS(); qps != 0 {
		t.Errorf("Expected 0 QPS without traffic, got %f", qps)
	}

	for i := 0; i < 6; i++ {
		ms.RecordRequest(true, 1, "m", 0)
	}
	if qps := ms.GetQPS(); qps != 0.1 {
		t.Errorf("Expected 0.1 QPS for 6 requests in a minute, got %f", qps)
	}
}

func TestMetricsService_HistoryKeepsLatestInOrder(t *testing.T) {
	ms := newTestService(t, 3, nil)

	for _, model := range []string{"m1", "m2", "m3", "m4", "m5"} {
		ms.RecordRequest(true, 100, model, 0)
	}

	history := ms.GetRequestStats().RequestHistory
	if len(history) != 3 {
		t.Fatalf("History should be capped at 3, got %d", len(history))
	}
	for i, want := range []string{"m3", "m4", "m5"} {
		if history[i].Model != want {
			t.Errorf("history[%d] = %s, want %s", i, history[i].Model, want)
		}
	}
}

func TestMetricsService_DefaultHistorySize(t *testing.T) {
	ms := newTestService(t, 0, nil)
	if cap(ms.history) != core.HistoryBufferSize {
		t.Errorf("Expected default history size %d, got %d", core.HistoryBufferSize, cap(ms.history))
	}
}

func TestMetricsService_RecordCompletion(t *testing.T) {
	tests := []struct {
		name    string
		success bool
		backend int
	}{
		{"成功", true, 0},
		{"失败", false, 1},
		{"未解析后端", false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := newTestService(t, 10, nil)
			ms.RecordCompletion(time.Now().Add(-50*time.Millisecond), "gpt-4", tt.backend, tt.success)

			stats := ms.GetRequestStats()
			if stats.SuccessfulRequests+stats.FailedRequests != 1 {
				t.Fatalf("Expected one record, got %+v", stats)
			}
			record := stats.RequestHistory[0]
			if record.Success != tt.success || record.Backend != tt.backend {
				t.Errorf("Unexpected record %+v", record)
			}
			if record.ResponseTime < 50 {
				t.Errorf("Expected latency >= 50ms, got %d", record.ResponseTime)
			}
		})
	}
}

func TestMetricsService_SaveIsDebounced(t *testing.T) {
	st := &countingStorage{}
	ms := newTestService(t, 10, st)

	ms.RecordRequest(true, 10, "gpt-4", 0)
	ms.RecordRequest(true, 10, "gpt-4", 0)
	if st.getSaveCount() != 1 {
		t.Errorf("Expected a single save within the interval, got %d", st.getSaveCount())
	}
}

func TestMetricsService_Close_Idempotent(t *testing.T) {
	st := &countingStorage{}
	ms := NewMetricsService(MetricsConfig{
		SaveInterval: time.Second,
		HistorySize:  10,
		Storage:      st,
		Logger:       &core.NopLogger{},
	})

	ms.RecordRequest(true, 10, "gpt-4", 0)

	if err := ms.Close(); err != nil {
		t.Fatalf("第一次关闭不应失败: %v", err)
	}
	firstCloseSaves := st.getSaveCount()
	if firstCloseSaves == 0 {
		t.Fatal("第一次关闭后应至少有一次持久化")
	}

	if err := ms.Close(); err != nil {
		t.Fatalf("第二次关闭不应失败: %v", err)
	}

	if st.getSaveCount() != firstCloseSaves {
		t.Fatalf("第二次 Close 不应新增持久化，第一次=%d，第二次后=%d", firstCloseSaves, st.getSaveCount())
	}
}

func TestMetricsService_HistoryCarriesBackend(t *testing.T) {
	ms := newTestService(t, 10, nil)

	ms.RecordRequest(true, 10, "gpt-4o", 0)
	ms.RecordRequest(true, 10, "llama3", 1)
	ms.RecordRequest(false, 10, "llama3", 1)

	stats := ms.GetRequestStats()
	counts := BackendCounts(stats.RequestHistory)
	if counts[0] != 1 || counts[1] != 2 {
		t.Errorf("Unexpected backend counts: %v", counts)
	}
}

func TestGetPeriodStats(t *testing.T) {
	now := time.Now()
	history := []core.RequestRecord{
		{Timestamp: now.Add(-10 * time.Minute), Success: true, ResponseTime: 100},
		{Timestamp: now.Add(-30 * time.Minute), Success: false, ResponseTime: 300},
		{Timestamp: now.Add(-5 * time.Hour), Success: true, ResponseTime: 50},
	}

	periods := GetPeriodStats(history, 1, 24)
	if periods[1].Requests != 2 {
		t.Errorf("Expected 2 requests in last hour, got %d", periods[1].Requests)
	}
	if periods[1].SuccessRate != 50 {
		t.Errorf("Expected 50%% success rate, got %f", periods[1].SuccessRate)
	}
	if periods[1].AvgResponseTime != 200 {
		t.Errorf("Expected avg 200ms, got %d", periods[1].AvgResponseTime)
	}
	if periods[24].Requests != 3 {
		t.Errorf("Expected 3 requests in last day, got %d", periods[24].Requests)
	}
	if GetPeriodStats(history) != nil {
		t.Error("No periods should return nil")
	}
}

func TestMetricsService_LoadStats(t *testing.T) {
	st := &preloadedStorage{stats: &core.RequestStats{
		TotalRequests:      7,
		SuccessfulRequests: 6,
		FailedRequests:     1,
		RequestHistory:     []core.RequestRecord{{Model: "gpt-4o", Success: true}},
	}}
	ms := newTestService(t, 10, st)

	if err := ms.LoadStats(); err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	stats := ms.GetRequestStats()
	if stats.TotalRequests != 7 || len(stats.RequestHistory) != 1 {
		t.Errorf("Unexpected stats after load: %+v", stats)
	}
}

type preloadedStorage struct {
	stats *core.RequestStats
}

func (s *preloadedStorage) SaveStats(_ *core.RequestStats) error { return nil }

func (s *preloadedStorage) LoadStats() (*core.RequestStats, error) { return s.stats, nil }

func (s *preloadedStorage) SaveSettings(_ *core.Settings) error { return nil }

func (s *preloadedStorage) LoadSettings() (*core.Settings, error) { return nil, nil }

func (s *preloadedStorage) Close() error { return nil }
