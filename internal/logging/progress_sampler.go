package logging

import "time"

// ProgressSampler thins ffmpeg progress lines down to one log record per
// percent bucket. When the total duration is unknown it falls back to a
// heartbeat at most once per interval.
type ProgressSampler struct {
	bucketSize float64
	interval   time.Duration
	lastBucket int
	lastEmit   time.Time
	now        func() time.Time
}

// NewProgressSampler returns a sampler. Non-positive arguments select 10%
// buckets and a 30s heartbeat.
func NewProgressSampler(bucketSize float64, interval time.Duration) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProgressSampler{bucketSize: bucketSize, interval: interval, lastBucket: -1, now: time.Now}
}

// ShouldLog reports whether an update at percent should be logged. A negative
// percent means the total is unknown.
func (s *ProgressSampler) ShouldLog(percent float64) bool {
	if s == nil {
		return true
	}
	now := s.now()
	if percent < 0 {
		if s.lastEmit.IsZero() || now.Sub(s.lastEmit) >= s.interval {
			s.lastEmit = now
			return true
		}
		return false
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if bucket <= s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	s.lastEmit = now
	return true
}

// Reset clears state before a new encode starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
	s.lastEmit = time.Time{}
}
