// Copyright 2026 Matheus Pimenta.
// SPDX-License-Identifier: AGPL-3.0

// Package tasks provides a minimal single-assignment future used to deliver
// the results of asynchronous SDK operations. A Task settles exactly once,
// either with a value or with an error, and can be waited upon or observed
// through listeners.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type (
	// Task is a thread-safe container for the result of an asynchronous
	// operation. The zero value is not usable, use New or Call.
	Task[T any] struct {
		mu        sync.Mutex
		done      chan struct{}
		settled   bool
		value     T
		err       error
		listeners []listener[T]
	}

	// Executor runs units of work on background goroutines. The worker
	// pools handed out by the app registry implement this interface.
	Executor interface {
		Submit(fn func())
	}

	listener[T any] struct {
		onSuccess func(T)
		onFailure func(error)
	}
)

// ErrAlreadySettled is returned by Complete and Fail when the task has
// already been settled. Settling a task is a once-in-a-lifetime transition.
var ErrAlreadySettled = errors.New("task was already completed or failed")

func New[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

// Call submits fn to the executor and returns a Task that settles with its
// result. The unit of work always runs to completion, abandoning the task
// does not cancel it.
func Call[T any](executor Executor, fn func() (T, error)) *Task[T] {
	t := New[T]()
	executor.Submit(func() {
		if v, err := fn(); err != nil {
			t.Fail(err)
		} else {
			t.Complete(v)
		}
	})
	return t
}

// Complete settles the task with a value. Returns ErrAlreadySettled if the
// task was settled before.
func (t *Task[T]) Complete(value T) error {
	return t.settle(value, nil)
}

// Fail settles the task with an error. Returns ErrAlreadySettled if the
// task was settled before.
func (t *Task[T]) Fail(err error) error {
	if err == nil {
		return fmt.Errorf("cannot fail a task with a nil error")
	}
	var zero T
	return t.settle(zero, err)
}

func (t *Task[T]) settle(value T, err error) error {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return ErrAlreadySettled
	}
	t.settled = true
	t.value = value
	t.err = err
	listeners := t.listeners
	t.listeners = nil
	close(t.done)
	t.mu.Unlock()

	// Listeners fire on the settling goroutine, in insertion order.
	for _, l := range listeners {
		l.notify(value, err)
	}
	return nil
}

// Get blocks until the task settles or the context is done. A stored failure
// is returned wrapped so callers can tell it happened asynchronously; the
// original error remains reachable through errors.Is and errors.As.
func (t *Task[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("gave up waiting for task: %w", ctx.Err())
	}
	if t.err != nil {
		var zero T
		return zero, fmt.Errorf("asynchronous operation failed: %w", t.err)
	}
	return t.value, nil
}

// Done returns a channel closed upon settlement.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// AddListener registers callbacks observing the settlement. If the task is
// already settled the matching callback fires synchronously on the calling
// goroutine, otherwise it fires exactly once on the settling goroutine.
// Either callback may be nil.
func (t *Task[T]) AddListener(onSuccess func(T), onFailure func(error)) {
	l := listener[T]{onSuccess, onFailure}
	t.mu.Lock()
	if !t.settled {
		t.listeners = append(t.listeners, l)
		t.mu.Unlock()
		return
	}
	value, err := t.value, t.err
	t.mu.Unlock()
	l.notify(value, err)
}

func (l listener[T]) notify(value T, err error) {
	if err != nil {
		if l.onFailure != nil {
			l.onFailure(err)
		}
	} else if l.onSuccess != nil {
		l.onSuccess(value)
	}
}
