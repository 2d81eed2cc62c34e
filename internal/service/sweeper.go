package service

import (
	"sync"
	"time"
)

// Sweeper owns the periodic housekeeping tasks (rate-limit bucket
// eviction, expired OTC rows, stale OAuth states). The tasks are
// best-effort: every reader already treats an expired row as expired,
// so an un-swept row only costs a little storage. The sweeper exists so
// the timers have a single owner with a clean shutdown instead of bare
// global goroutines.
type Sweeper struct {
	interval time.Duration
	tasks    []func(now time.Time)

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewSweeper builds a sweeper that runs each task every interval.
func NewSweeper(interval time.Duration, tasks ...func(now time.Time)) *Sweeper {
	return &Sweeper{
		interval: interval,
		tasks:    tasks,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				for _, task := range s.tasks {
					task(now)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit. Safe to call more
// than once.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
