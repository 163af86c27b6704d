// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package exchange hands snapshots between independently paced loops.
//
// Every channel here holds at most one pending value. A publish replaces
// whatever was not consumed yet, so consumers only ever see the newest
// snapshot and never a backlog. Values are stored behind a pointer that is
// swapped atomically, which keeps every snapshot whole: a reader gets all
// fields of one step or all fields of the next one.
package exchange

import "sync/atomic"

// Slot is a single-slot latest-value channel.
// The zero value is an empty slot ready to use.
type Slot[T any] struct {
	p atomic.Pointer[T]
}

// Publish stores v, dropping any unconsumed previous value. Never blocks.
func (s *Slot[T]) Publish(v T) {
	s.p.Store(&v)
}

// Consume takes the pending value, leaving the slot empty.
// The second result is false when nothing new was published.
func (s *Slot[T]) Consume() (T, bool) {
	p := s.p.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Peek returns the pending value without consuming it.
func (s *Slot[T]) Peek() (T, bool) {
	p := s.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Fanout delivers one data kind to several consumers, each through its own
// Slot. Subscribers should register before the producer starts; a late
// subscriber only sees values published after it joined.
type Fanout[T any] struct {
	subs atomic.Pointer[[]*Slot[T]]
}

// Subscribe returns a new consumer slot.
func (f *Fanout[T]) Subscribe() *Slot[T] {
	slot := &Slot[T]{}
	for {
		old := f.subs.Load()
		var next []*Slot[T]
		if old != nil {
			next = append(next, *old...)
		}
		next = append(next, slot)
		if f.subs.CompareAndSwap(old, &next) {
			return slot
		}
	}
}

// Publish stores v into every subscriber slot.
func (f *Fanout[T]) Publish(v T) {
	subs := f.subs.Load()
	if subs == nil {
		return
	}
	for _, s := range *subs {
		s.Publish(v)
	}
}

// Subscribers reports how many consumers are registered.
func (f *Fanout[T]) Subscribers() int {
	subs := f.subs.Load()
	if subs == nil {
		return 0
	}
	return len(*subs)
}
