// Package merge schedules background consolidation for tables: a periodic
// cron sweep over every registered table, plus an immediate dispatch the
// moment a table's update counter crosses its merge threshold. Adapts the
// teacher's cron-based job scheduler (robfig/cron, a registry of named
// jobs, a running-set guarding against overlapping runs) to a single job
// kind — merge — driven by table state instead of stored SQL.
package merge

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Executor is the subset of engine.Table the scheduler needs: it never
// imports the engine package directly, so callers can substitute a fake in
// tests without constructing a real table.
type Executor interface {
	UpdateCounter() int
	MergeThreshold() int
	Merge() error
}

// Scheduler runs merges for a registry of named tables.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	tables  map[string]Executor
	running map[string]bool
}

// NewScheduler creates an idle scheduler. Call Start to begin the periodic
// sweep; Register/Unregister can be called before or after Start.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		tables:  make(map[string]Executor),
		running: make(map[string]bool),
	}
}

// Register adds or replaces the table watched under name.
func (s *Scheduler) Register(name string, tb Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = tb
}

// Unregister stops watching name.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, name)
}

// Start begins the periodic sweep on the given standard 5-field cron
// schedule (e.g. "*/5 * * * *"), which merges any registered table whose
// update counter has crossed its threshold since the last sweep.
func (s *Scheduler) Start(cronSpec string) error {
	if _, err := s.cron.AddFunc(cronSpec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the periodic sweep. In-flight merges are not canceled.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweep merges every registered table past its threshold.
func (s *Scheduler) sweep() {
	s.mu.Lock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	s.mu.Unlock()

	for _, name := range names {
		s.CheckAndTrigger(name)
	}
}

// CheckAndTrigger merges name immediately if its update counter has
// crossed its threshold, skipping it if a merge for that table is already
// in flight. Safe to call after every update commit.
func (s *Scheduler) CheckAndTrigger(name string) {
	s.mu.Lock()
	tb, ok := s.tables[name]
	if !ok || s.running[name] {
		s.mu.Unlock()
		return
	}
	if tb.UpdateCounter() < tb.MergeThreshold() {
		s.mu.Unlock()
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.running, name)
			s.mu.Unlock()
		}()
		if err := tb.Merge(); err != nil {
			log.Printf("merge: table %q: %v", name, err)
		}
	}()
}
