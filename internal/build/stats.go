package build

import (
	"sync"
	"time"
)

// Stats tracks page build outcomes across the life of a Builder.
type Stats struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	mutex            sync.RWMutex
}

// NewStats creates an empty tracker.
func NewStats() *Stats {
	return &Stats{}
}

// Record adds one page build.
func (s *Stats) Record(d time.Duration, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TotalBuilds++
	s.TotalDuration += d

	if err != nil {
		s.FailedBuilds++
	} else {
		s.SuccessfulBuilds++
	}

	s.AverageDuration = s.TotalDuration / time.Duration(s.TotalBuilds)
}

// StatsSnapshot is a lock-free copy of Stats.
type StatsSnapshot struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return StatsSnapshot{
		TotalBuilds:      s.TotalBuilds,
		SuccessfulBuilds: s.SuccessfulBuilds,
		FailedBuilds:     s.FailedBuilds,
		AverageDuration:  s.AverageDuration,
		TotalDuration:    s.TotalDuration,
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TotalBuilds = 0
	s.SuccessfulBuilds = 0
	s.FailedBuilds = 0
	s.AverageDuration = 0
	s.TotalDuration = 0
}

// SuccessRate returns the share of successful builds as a percentage.
func (s *Stats) SuccessRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.TotalBuilds == 0 {
		return 0.0
	}

	return float64(s.SuccessfulBuilds) / float64(s.TotalBuilds) * 100.0
}
