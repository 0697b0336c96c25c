// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

package executors_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheuscscp/identity-admin/internal/executors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySharesPoolsAcrossApps(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})

	first := registry.Acquire("app1")
	second := registry.Acquire("app2")
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 2, registry.Len())

	// Acquiring an already registered name returns the existing
	// registration without counting twice.
	again := registry.Acquire("app1")
	assert.Same(t, first, again)
	assert.Equal(t, 2, registry.Len())
}

func TestRegistryDestroysPoolsOnLastRelease(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})

	first := registry.Acquire("app1")
	registry.Acquire("app2")

	registry.Release("app1")
	assert.Equal(t, 1, registry.Len())

	registry.Release("app2")
	assert.Equal(t, 0, registry.Len())

	// The next registration creates brand new pools.
	fresh := registry.Acquire("app3")
	assert.NotSame(t, first, fresh)
	registry.Release("app3")
}

func TestRegistryReleaseUnknownAppIsNoop(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	registry.Acquire("app1")
	registry.Release("never-registered")
	assert.Equal(t, 1, registry.Len())
	registry.Release("app1")
}

func TestWorkerPoolRunsSubmissions(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	pools := registry.Acquire("app")

	const n = 50
	var wg sync.WaitGroup
	var count atomic.Int32
	wg.Add(n)
	for i := 0; i < n; i++ {
		pools.Workers.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(n), count.Load())

	registry.Release("app")
}

func TestWorkerPoolBoundsParallelism(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{MaxWorkers: 2})
	pools := registry.Acquire("app")

	var inflight, peak atomic.Int32
	var wg sync.WaitGroup
	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		pools.Workers.Submit(func() {
			defer wg.Done()
			cur := inflight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inflight.Add(-1)
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))

	registry.Release("app")
}

func TestWorkerPoolDropsSubmissionsAfterShutdown(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	pools := registry.Acquire("app")
	registry.Release("app")

	var ran atomic.Bool
	pools.Workers.Submit(func() { ran.Store(true) })
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestSchedulerRunsAfterDelay(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	pools := registry.Acquire("app")
	defer registry.Release("app")

	done := make(chan struct{})
	pools.Scheduler.Schedule(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled work never ran")
	}
}

func TestSchedulerCancelPreventsExecution(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	pools := registry.Acquire("app")
	defer registry.Release("app")

	var ran atomic.Bool
	cancel := pools.Scheduler.Schedule(50*time.Millisecond, func() { ran.Store(true) })
	cancel()
	// Cancelling twice is a no-op.
	cancel()

	time.Sleep(150 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestSchedulerShutdownCancelsPendingWork(t *testing.T) {
	registry := executors.NewRegistry(executors.RegistryOptions{})
	pools := registry.Acquire("app")

	var ran atomic.Bool
	pools.Scheduler.Schedule(50*time.Millisecond, func() { ran.Store(true) })
	registry.Release("app")

	time.Sleep(150 * time.Millisecond)
	assert.False(t, ran.Load())

	// Scheduling after shutdown is dropped and the cancel func is inert.
	cancel := pools.Scheduler.Schedule(time.Millisecond, func() { ran.Store(true) })
	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}
