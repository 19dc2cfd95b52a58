package observability

import (
	"sort"
	"sync"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// FingerprintStats is the per-query-shape aggregate kept in memory.
type FingerprintStats struct {
	Fingerprint string  `json:"fingerprint"`
	Count       int64   `json:"count"`
	AvgMs       float64 `json:"avg_ms"`
	MaxMs       int64   `json:"max_ms"`
}

// Monitor implements domain.PerformanceMonitor. It feeds the Prometheus
// metrics and keeps a mutex-guarded per-fingerprint aggregate for the slow
// query surface. Initialized once at process start; shared across requests.
type Monitor struct {
	mu    sync.Mutex
	stats map[string]*FingerprintStats
}

// NewMonitor creates an empty Monitor.
func NewMonitor() *Monitor {
	return &Monitor{stats: make(map[string]*FingerprintStats)}
}

var _ domain.PerformanceMonitor = (*Monitor)(nil)

// ObserveQuery records one execution attempt, success or not.
func (m *Monitor) ObserveQuery(fingerprint string, durationMs int64, status domain.ExecutionStatus) {
	ReportExecutionsTotal.WithLabelValues(string(status)).Inc()
	ReportExecutionDuration.WithLabelValues(string(status)).Observe(float64(durationMs) / 1000)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[fingerprint]
	if !ok {
		s = &FingerprintStats{Fingerprint: fingerprint}
		m.stats[fingerprint] = s
	}
	s.AvgMs = (s.AvgMs*float64(s.Count) + float64(durationMs)) / float64(s.Count+1)
	s.Count++
	if durationMs > s.MaxMs {
		s.MaxMs = durationMs
	}
}

// ObserveCache records one cache probe.
func (m *Monitor) ObserveCache(_ string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	CacheProbesTotal.WithLabelValues(outcome).Inc()
}

// Slowest returns up to n fingerprints ordered by average duration, slowest
// first.
func (m *Monitor) Slowest(n int) []FingerprintStats {
	m.mu.Lock()
	out := make([]FingerprintStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, *s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgMs != out[j].AvgMs {
			return out[i].AvgMs > out[j].AvgMs
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
