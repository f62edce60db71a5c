// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler serializes measurement application. Producers add
// measurements from any goroutine; one dispatch loop applies them in
// capture-time order against the state snapshot matching each capture
// time.
package scheduler

import (
	"container/heap"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/fusion_computer/internal/measurement"
	"github.com/relabs-tech/fusion_computer/internal/state"
)

// FilterCore is the filter surface the scheduler drives.
type FilterCore interface {
	measurement.Core
	ClosestState(ts float64) *state.Vector
	InitialState() *state.Vector
	NewestTime() (float64, bool)
}

// Config tunes dispatch behaviour.
type Config struct {
	// SettleWindow holds each measurement briefly so later-arriving
	// measurements with earlier capture times can still be sequenced
	// ahead of it.
	SettleWindow time.Duration

	// MaxDelay is the reprocessing horizon: measurements whose capture
	// time lags the filter's newest snapshot by more than this are
	// dropped rather than applied.
	MaxDelay time.Duration

	// Interval paces the dispatch loop.
	Interval time.Duration

	// Now is the dispatch clock; defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns dispatch defaults matched to typical sensor
// transport latencies.
func DefaultConfig() Config {
	return Config{
		SettleWindow: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Interval:     20 * time.Millisecond,
	}
}

// Scheduler owns the pending queue and the single dispatch goroutine.
type Scheduler struct {
	cfg  Config
	core FilterCore

	mu      sync.Mutex
	pending measurementHeap

	// applyMu serializes every Apply call into the core, init and
	// dispatch alike, separate from the queue lock so producers can keep
	// adding while a measurement is being applied.
	applyMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// New creates a scheduler driving core.
func New(core FilterCore, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		cfg:  cfg,
		core: core,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Add queues a measurement for dispatch. Invalid measurements are the
// scheduler's to filter: they are logged and discarded here so they can
// never reach Apply.
func (s *Scheduler) Add(m measurement.Measurement) {
	if inv, ok := m.(*measurement.Invalid); ok {
		log.Printf("scheduler: dropping invalid measurement (t=%.6f seq=%d)", inv.Time(), inv.Seq())
		return
	}
	s.mu.Lock()
	heap.Push(&s.pending, m)
	s.mu.Unlock()
}

// ApplyInit applies a staged-initialization measurement immediately,
// serialized with dispatch. Only legal before steady state; the core
// enforces that.
func (s *Scheduler) ApplyInit(m *measurement.Init) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	m.Apply(s.core.InitialState(), s.core)
}

// Pending returns the number of queued measurements.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// Dispatch applies, in capture-time order, every pending measurement
// captured at or before upTo. Returns the number applied.
func (s *Scheduler) Dispatch(upTo float64) int {
	applied := 0
	for {
		s.mu.Lock()
		if s.pending.Len() == 0 || s.pending.peek().Time() > upTo {
			s.mu.Unlock()
			return applied
		}
		m := heap.Pop(&s.pending).(measurement.Measurement)
		s.mu.Unlock()

		if newest, ok := s.core.NewestTime(); ok {
			if lag := newest - m.Time(); lag > s.cfg.MaxDelay.Seconds() {
				log.Printf("scheduler: measurement at t=%.6f lags history by %.3fs, dropped", m.Time(), lag)
				continue
			}
		}
		s.applyMu.Lock()
		st := s.core.ClosestState(m.Time())
		if st == nil {
			s.applyMu.Unlock()
			log.Printf("scheduler: no filter state yet, dropping measurement at t=%.6f", m.Time())
			continue
		}
		m.Apply(st, s.core)
		s.applyMu.Unlock()
		applied++
	}
}

// Run starts the dispatch loop; it returns when Stop is called.
func (s *Scheduler) Run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			// Drain what is already due before shutting down.
			s.Dispatch(measurement.Seconds(s.cfg.Now()) - s.cfg.SettleWindow.Seconds())
			return
		case now := <-ticker.C:
			s.Dispatch(measurement.Seconds(now) - s.cfg.SettleWindow.Seconds())
		}
	}
}

// Stop ends the dispatch loop and waits for it to drain.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// measurementHeap orders pending measurements by measurement.Less:
// capture time, then arrival sequence.
type measurementHeap []measurement.Measurement

func (h measurementHeap) Len() int            { return len(h) }
func (h measurementHeap) Less(i, j int) bool  { return measurement.Less(h[i], h[j]) }
func (h measurementHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *measurementHeap) Push(x any) { *h = append(*h, x.(measurement.Measurement)) }
func (h *measurementHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}

func (h measurementHeap) peek() measurement.Measurement { return h[0] }
