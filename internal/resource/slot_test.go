package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotTakeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewSlot("session-1")

	assert.Equal(t, StateHeld, s.State(ctx))

	v, ok := s.Take(ctx)
	require.True(t, ok)
	assert.Equal(t, "session-1", v)
	assert.Equal(t, StateReleased, s.State(ctx))

	v, ok = s.Take(ctx)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestSlotPutAfterReleaseIsRejected(t *testing.T) {
	ctx := context.Background()
	var s Slot[int]

	assert.Equal(t, StateEmpty, s.State(ctx))
	require.True(t, s.Put(ctx, 3))
	assert.False(t, s.Put(ctx, 4))

	v, ok := s.Peek(ctx)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = s.Take(ctx)
	require.True(t, ok)
	assert.False(t, s.Put(ctx, 5))
	assert.Equal(t, StateReleased, s.State(ctx))
}

func TestSlotReleaseRunsOnceUnderContention(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(struct{}{})

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Release(ctx, func(struct{}) error {
				calls.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestSlotReleaseReturnsError(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(1)
	boom := errors.New("boom")

	assert.ErrorIs(t, s.Release(ctx, func(int) error { return boom }), boom)
	assert.NoError(t, s.Release(ctx, func(int) error { return boom }))
}
