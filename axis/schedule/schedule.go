/*
 * schedule - one-shot delay/settle timer for the axis coordinator.
 *
 * Copyright (c) 2026, the axiscore authors.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 */

// Package schedule provides a small cancellable one-shot event registry.
// The axis coordinator uses it to arm the settle delay of §4.6 and the
// InPosition retry delay of §4.7, without the timer itself holding a
// reference back to the record it fires into: callers register a callback
// under an id, the timer's closure captures only that id and an arm
// version, and the registry looks the id up in its entry map at fire time
// (§9 design note on the delay-timer/record cycle). The registry's map
// holds the callback until the id is armed again.
package schedule

import (
	"sync"
	"time"
)

// Callback receives the argument it was armed with.
type Callback func(arg int)

type entry struct {
	cb      Callback
	arg     int
	timer   *time.Timer
	armed   bool
	version uint64
}

// Registry owns a set of independently armable/cancellable one-shot
// timers, keyed by caller-chosen id (typically an axis record's handle).
// One Registry is safe to share across many axis.Record instances; each
// record only ever touches its own id.
type Registry struct {
	mu      sync.Mutex
	entries map[int]*entry
	nextVer uint64

	// after is overridable by tests; defaults to time.AfterFunc.
	after func(d time.Duration, f func()) *time.Timer
}

// NewRegistry returns an empty registry using the real wall clock.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[int]*entry),
		after:   time.AfterFunc,
	}
}

// Arm schedules cb(arg) to run after d. A second Arm for the same id
// cancels and replaces any pending timer for that id (the core never
// needs two settle delays in flight for one axis).
func (r *Registry) Arm(id int, d time.Duration, cb Callback, arg int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[id]; ok && old.timer != nil {
		old.timer.Stop()
	}
	r.nextVer++
	ver := r.nextVer
	e := &entry{cb: cb, arg: arg, armed: true, version: ver}
	e.timer = r.after(d, func() { r.fire(id, ver) })
	r.entries[id] = e
}

func (r *Registry) fire(id int, ver uint64) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.version != ver || !e.armed {
		r.mu.Unlock()
		return
	}
	e.armed = false
	cb := e.cb
	arg := e.arg
	r.mu.Unlock()
	cb(arg)
}

// Cancel disarms any pending timer for id. Per §5 concurrency model, Stop
// does NOT cancel a pending delay (it is cheap and idempotent); Cancel
// exists for callers (e.g. tests, or a record being destroyed) that
// genuinely need to suppress the callback.
func (r *Registry) Cancel(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.armed = false
	}
}

// Pending reports whether id has an outstanding, not-yet-fired timer.
func (r *Registry) Pending(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.armed
}
