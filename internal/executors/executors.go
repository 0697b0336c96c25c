// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package executors hands out shared worker pools to app instances. The
// underlying resources are created when the first app registers and torn
// down when the last one deregisters, intermediate registrations reuse them.
package executors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheuscscp/identity-admin/internal/logging"

	"golang.org/x/sync/semaphore"
)

type (
	Registry struct {
		opts  RegistryOptions
		mu    sync.Mutex
		apps  map[string]*Pools
		pools *Pools
	}

	RegistryOptions struct {
		// MaxWorkers bounds the parallelism of the shared worker pool.
		// Zero or negative means unbounded, which suits most server
		// environments. Sandboxed platforms that forbid unmanaged
		// concurrency should set a small positive bound.
		MaxWorkers int64
	}

	// Pools is the pair of executors assigned to a registered app.
	Pools struct {
		Workers   *WorkerPool
		Scheduler *Scheduler
	}

	// WorkerPool runs units of work on background goroutines, optionally
	// bounding parallelism with a weighted semaphore.
	WorkerPool struct {
		mu       sync.Mutex
		closed   bool
		inflight sync.WaitGroup
		sem      *semaphore.Weighted
	}

	// Scheduler runs units of work after a delay. Pending work is
	// cancelled when the scheduler shuts down.
	Scheduler struct {
		mu     sync.Mutex
		closed bool
		timers map[*time.Timer]struct{}
	}
)

func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{opts: opts, apps: make(map[string]*Pools)}
}

// Acquire registers the named app and returns its executor pools. The pools
// are shared across apps: the first registration creates them, later ones
// reuse them. Acquiring the same name twice without releasing returns the
// existing registration.
func (r *Registry) Acquire(appName string) *Pools {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pools, ok := r.apps[appName]; ok {
		return pools
	}
	if len(r.apps) == 0 {
		var sem *semaphore.Weighted
		if n := r.opts.MaxWorkers; n > 0 {
			sem = semaphore.NewWeighted(n)
		}
		r.pools = &Pools{
			Workers:   &WorkerPool{sem: sem},
			Scheduler: &Scheduler{timers: make(map[*time.Timer]struct{})},
		}
	}
	r.apps[appName] = r.pools
	return r.pools
}

// Release deregisters the named app. When the last registration is removed
// the shared pools are shut down: inflight work is drained and scheduled
// work is cancelled.
func (r *Registry) Release(appName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[appName]; !ok {
		return
	}
	delete(r.apps, appName)
	if len(r.apps) == 0 {
		r.pools.Workers.shutdown()
		r.pools.Scheduler.shutdown()
		r.pools = nil
	}
}

// Submit runs fn on a background goroutine, waiting for a semaphore slot
// first when the pool is bounded. Submissions after shutdown are dropped.
func (p *WorkerPool) Submit(fn func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logging.FromContext(context.Background()).Warn("unit of work submitted to a worker pool after shutdown, dropping")
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.inflight.Done()
		if p.sem != nil {
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer p.sem.Release(1)
		}
		fn()
	}()
}

func (p *WorkerPool) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.inflight.Wait()
}

// Schedule runs fn after the given delay. The returned function cancels the
// pending execution; cancelling after the fact is a no-op.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		logging.FromContext(context.Background()).Warn("unit of work scheduled after shutdown, dropping")
		return func() {}
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		s.mu.Unlock()
		fn()
	})
	s.timers[timer] = struct{}{}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if timer.Stop() {
			delete(s.timers, timer)
		}
	}
}

func (s *Scheduler) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for timer := range s.timers {
		timer.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
}

// Len reports the number of active registrations, for tests and debugging.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

func (r *Registry) String() string {
	return fmt.Sprintf("executors.Registry{apps: %d}", r.Len())
}
