package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 25},
		{"default bucket size for negative", -1, 25},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("task", 50) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset("task") // should not panic
}

func TestProgressSampler_BucketsPerKey(t *testing.T) {
	s := NewProgressSampler(25)

	if !s.ShouldLog("a", 0) {
		t.Error("first event for a key should log")
	}
	if s.ShouldLog("a", 10) {
		t.Error("same bucket should not log again")
	}
	if !s.ShouldLog("a", 26) {
		t.Error("crossing a bucket should log")
	}
	if !s.ShouldLog("b", 26) {
		t.Error("keys are tracked independently")
	}
	if s.ShouldLog("a", 20) {
		t.Error("going backwards should not log")
	}
	if !s.ShouldLog("a", 100) {
		t.Error("completion should log")
	}
	if s.ShouldLog("a", -1) {
		t.Error("unknown percent should not log")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(25)
	s.ShouldLog("a", 100)
	s.Reset("a")
	if !s.ShouldLog("a", 0) {
		t.Error("reset key should log from zero again")
	}
}
