package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no probe results are available.
	ErrNotFound = errors.New("no probe results recorded")
)

// ProbeResult records one run of the periodic upstream probe.
type ProbeResult struct {
	Timestamp  time.Time `json:"timestamp"` // always UTC
	OK         bool      `json:"ok"`
	StatusCode int       `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	MeanTemp   *float64  `json:"meanTemp,omitempty"`
}

// MemoryStore is a concurrency-safe in-memory history of probe results.
type MemoryStore struct {
	mu      sync.RWMutex
	results []ProbeResult

	// retention configuration
	maxHistory int           // max number of results kept
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save appends a result and enforces retention.
func (s *MemoryStore) Save(result ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.results) > s.maxHistory {
		over := len(s.results) - s.maxHistory
		s.results = s.results[over:]
	}

	// Enforce retention by age. The newest result is always kept.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.results)-1; i++ {
			if !s.results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.results = s.results[i:]
		}
	}
}

// Latest returns the most recent result.
func (s *MemoryStore) Latest() (ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.results) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return s.results[len(s.results)-1], nil
}

// Range returns all results between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ProbeResult
	for _, r := range s.results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
