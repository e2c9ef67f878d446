package timer

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func drain(ch <-chan uint64) []uint64 {
	var out []uint64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func TestZeroDurationCompletesImmediately(t *testing.T) {
	tm := New(clock.NewMock(), 0)
	tm.Start(context.Background())

	require.NoError(t, tm.Wait(waitCtx(t)))
	assert.Empty(t, drain(tm.Ticks()))
}

func TestCountdownCompletes(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, 3*time.Second)
	tm.Start(context.Background())

	mock.Add(time.Second)
	mock.Add(time.Second)
	mock.Add(time.Second)

	require.NoError(t, tm.Wait(waitCtx(t)))

	values := drain(tm.Ticks())
	for i, v := range values {
		assert.LessOrEqual(t, v, uint64(3))
		if i > 0 {
			assert.LessOrEqual(t, v, values[i-1])
		}
	}
}

func TestFirstTickIsFullDuration(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, 5*time.Second)
	tm.Start(context.Background())
	defer tm.Cancel()

	select {
	case v := <-tm.Ticks():
		assert.Equal(t, uint64(5), v)
	case <-waitCtx(t).Done():
		t.Fatal("no tick")
	}
}

func TestCancelResolvesWithCancelled(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, 10*time.Second)
	tm.Start(context.Background())

	tm.Cancel()
	tm.Cancel()

	err := tm.Wait(waitCtx(t))
	assert.ErrorIs(t, err, recerr.ErrCancelled)
	assert.ErrorIs(t, tm.Err(), recerr.ErrCancelled)

	// closed before completion was reported
	for v := range tm.Ticks() {
		assert.Equal(t, uint64(10), v)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	tm := New(clock.NewMock(), time.Second)
	tm.Cancel()
	tm.Start(context.Background())

	assert.ErrorIs(t, tm.Wait(waitCtx(t)), recerr.ErrCancelled)
	assert.Empty(t, drain(tm.Ticks()))
}

func TestContextCancellationStopsTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tm := New(clock.NewMock(), time.Minute)
	tm.Start(ctx)
	cancel()

	assert.ErrorIs(t, tm.Wait(waitCtx(t)), recerr.ErrCancelled)
}

func TestSecsLeft(t *testing.T) {
	mock := clock.NewMock()
	tm := New(mock, 3*time.Second)
	start := mock.Now()

	assert.Equal(t, uint64(3), tm.secsLeft(start))
	mock.Add(1500 * time.Millisecond)
	assert.Equal(t, uint64(2), tm.secsLeft(start))
	mock.Add(5 * time.Second)
	assert.Equal(t, uint64(0), tm.secsLeft(start))
}
