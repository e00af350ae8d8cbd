// Package observability provides search frequency tracking for capacity
// planning and hot-column monitoring.
package observability

import (
	"sort"
	"sync"
	"time"
)

// SearchStats tracks search frequency per table column within a sliding
// window.
type SearchStats struct {
	mu     sync.RWMutex
	freq   map[string]*ColumnUsage
	window time.Duration
}

// ColumnUsage holds usage statistics for one table column.
type ColumnUsage struct {
	Table     string         `json:"table"`
	Column    string         `json:"column"`
	Frequency int64          `json:"frequency"`
	LastSeen  time.Time      `json:"last_seen"`
	Modes     map[string]int `json:"modes"` // search mode → count
}

// NewSearchStats creates a tracker. window bounds how long an idle column
// stays in the snapshot before Prune drops it.
func NewSearchStats(window time.Duration) *SearchStats {
	return &SearchStats{
		freq:   make(map[string]*ColumnUsage),
		window: window,
	}
}

// RecordSearch records one search against a table column. O(1) and
// thread-safe.
func (s *SearchStats) RecordSearch(table, column, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := table + "." + column
	usage, exists := s.freq[key]
	if !exists {
		usage = &ColumnUsage{
			Table:  table,
			Column: column,
			Modes:  make(map[string]int),
		}
		s.freq[key] = usage
	}

	usage.Frequency++
	usage.LastSeen = time.Now()
	usage.Modes[mode]++
}

// TopColumns returns the n most searched columns by frequency, descending.
// The returned slice is a deep copy.
func (s *SearchStats) TopColumns(n int) []ColumnUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.freq) == 0 {
		return []ColumnUsage{}
	}

	out := make([]ColumnUsage, 0, len(s.freq))
	for _, u := range s.freq {
		cp := ColumnUsage{
			Table:     u.Table,
			Column:    u.Column,
			Frequency: u.Frequency,
			LastSeen:  u.LastSeen,
			Modes:     make(map[string]int, len(u.Modes)),
		}
		for mode, count := range u.Modes {
			cp.Modes[mode] = count
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Prune removes columns not searched within the window. Call periodically.
func (s *SearchStats) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-s.window)
	for key, usage := range s.freq {
		if usage.LastSeen.Before(threshold) {
			delete(s.freq, key)
		}
	}
}
