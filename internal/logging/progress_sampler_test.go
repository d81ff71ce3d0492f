package logging

import (
	"testing"
	"time"
)

func TestNewProgressSamplerDefaults(t *testing.T) {
	s := NewProgressSampler(0, 0)
	if s.bucketSize != 10 || s.interval != 30*time.Second {
		t.Fatalf("defaults = %v/%v", s.bucketSize, s.interval)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25, time.Minute)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{10, false},
		{24.9, false},
		{25, true},
		{20, false},
		{80, true},
		{99, false},
		{100, true},
		{140, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerHeartbeatWhenTotalUnknown(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewProgressSampler(10, 30*time.Second)
	s.now = func() time.Time { return clock }

	if !s.ShouldLog(-1) {
		t.Fatal("first unknown-total update should log")
	}
	clock = clock.Add(10 * time.Second)
	if s.ShouldLog(-1) {
		t.Fatal("update inside the interval should be suppressed")
	}
	clock = clock.Add(25 * time.Second)
	if !s.ShouldLog(-1) {
		t.Fatal("update after the interval should log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(50, time.Minute)
	s.ShouldLog(60)
	if s.ShouldLog(70) {
		t.Fatal("same bucket should not log")
	}
	s.Reset()
	if !s.ShouldLog(10) {
		t.Fatal("reset sampler should log the first bucket again")
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}
