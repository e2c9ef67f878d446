// Package resource holds values that must be released exactly once.
package resource

import (
	"context"

	"github.com/xaionaro-go/xsync"
)

// State of a Slot
type State int

const (
	StateEmpty State = iota
	StateHeld
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHeld:
		return "held"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// Slot owns a value until it is taken. Once taken it can never be taken
// again, even if the slot is refilled by mistake.
type Slot[T any] struct {
	locker xsync.Mutex
	value  T
	state  State
}

// NewSlot returns a slot holding v
func NewSlot[T any](v T) *Slot[T] {
	return &Slot[T]{value: v, state: StateHeld}
}

// Put stores v if the slot is empty. It returns false if the slot already
// holds a value or was released.
func (s *Slot[T]) Put(ctx context.Context, v T) bool {
	return xsync.DoR1(ctx, &s.locker, func() bool {
		if s.state != StateEmpty {
			return false
		}
		s.value = v
		s.state = StateHeld
		return true
	})
}

// Take moves the value out of the slot. Only the first call after Put
// returns true.
func (s *Slot[T]) Take(ctx context.Context) (T, bool) {
	return xsync.DoR2(ctx, &s.locker, func() (T, bool) {
		var zero T
		if s.state != StateHeld {
			return zero, false
		}
		v := s.value
		s.value = zero
		s.state = StateReleased
		return v, true
	})
}

// Peek returns the value without taking it
func (s *Slot[T]) Peek(ctx context.Context) (T, bool) {
	return xsync.DoR2(ctx, &s.locker, func() (T, bool) {
		return s.value, s.state == StateHeld
	})
}

// State returns the current state
func (s *Slot[T]) State(ctx context.Context) State {
	return xsync.DoR1(ctx, &s.locker, func() State {
		return s.state
	})
}

// Release takes the value and hands it to fn. fn runs at most once over
// the lifetime of the slot; later calls return nil without calling it.
func (s *Slot[T]) Release(ctx context.Context, fn func(T) error) error {
	v, ok := s.Take(ctx)
	if !ok {
		return nil
	}
	return fn(v)
}
