package logging

import "sync"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when a task crosses a percentage bucket. It tracks each key independently
// and is safe for concurrent use by transfer workers.
type ProgressSampler struct {
	bucketSize float64
	mu         sync.Mutex
	last       map[string]int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 25%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 25
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether a progress event for key should be logged.
// Negative percentages mean "unknown" and never emit.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.last[key]
	if seen && bucket <= last {
		return false
	}
	s.last[key] = bucket
	return true
}

// Reset forgets key so a retried task logs from zero again.
func (s *ProgressSampler) Reset(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, key)
	s.mu.Unlock()
}
