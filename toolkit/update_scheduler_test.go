package toolkit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestUpdateSchedulerCoalesce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	window := 20 * time.Millisecond

	var passes atomic.Int64
	passed := make(chan struct{}, 16)
	updateScheduler := NewUpdateScheduler(ctx, window, func() {
		passes.Add(1)
		passed <- struct{}{}
	})
	defer updateScheduler.Close()

	// leading pass
	updateScheduler.Notify()
	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("no leading pass")
	}
	assert.Equal(t, passes.Load(), int64(1))

	// a burst within the window folds into one trailing pass
	for range 100 {
		updateScheduler.Notify()
	}
	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("no trailing pass")
	}
	time.Sleep(10 * window)
	assert.Equal(t, passes.Load(), int64(2))

	// idle again, the next notification runs immediately
	updateScheduler.Notify()
	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("no pass after idle")
	}
	time.Sleep(10 * window)
	assert.Equal(t, passes.Load(), int64(3))
}

func TestUpdateSchedulerNoOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var active atomic.Int64
	var overlap atomic.Bool
	var passes atomic.Int64
	updateScheduler := NewUpdateScheduler(ctx, time.Millisecond, func() {
		if active.Add(1) != 1 {
			overlap.Store(true)
		}
		time.Sleep(5 * time.Millisecond)
		passes.Add(1)
		active.Add(-1)
	})
	defer updateScheduler.Close()

	end := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(end) {
		updateScheduler.Notify()
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, overlap.Load(), false)
	assert.NotEqual(t, passes.Load(), int64(0))
}

func TestUpdateSchedulerPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	passed := make(chan struct{}, 16)
	updateScheduler := NewUpdateScheduler(ctx, time.Millisecond, func() {
		passed <- struct{}{}
		panic("pass failed")
	})
	defer updateScheduler.Close()

	// the loop survives a failed pass
	for range 2 {
		updateScheduler.Notify()
		select {
		case <-passed:
		case <-time.After(time.Second):
			t.Fatal("no pass")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
