package scheduler

import "time"

// ExportedPrune exposes the private prune method for external tests.
func (s *Scheduler) ExportedPrune() {
	s.prune()
}

// SetClock replaces the scheduler's time source for external tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}
