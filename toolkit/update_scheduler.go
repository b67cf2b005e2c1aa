package toolkit

import (
	"context"
	"time"
)

const DefaultUpdateWindow = 10 * time.Millisecond

// UpdateScheduler coalesces change notifications into update passes.
// The first notification after idle runs a pass immediately. Notifications that arrive
// within `window` of a pass are folded into exactly one trailing pass, which starts
// another window. A window without notifications returns the scheduler to idle.
// Passes never overlap.
type UpdateScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	window time.Duration
	update func()

	// single slot, a pending notification absorbs further notifications
	notify chan struct{}
}

func NewUpdateSchedulerWithDefaults(ctx context.Context, update func()) *UpdateScheduler {
	return NewUpdateScheduler(ctx, DefaultUpdateWindow, update)
}

func NewUpdateScheduler(ctx context.Context, window time.Duration, update func()) *UpdateScheduler {
	cancelCtx, cancel := context.WithCancel(ctx)
	updateScheduler := &UpdateScheduler{
		ctx:    cancelCtx,
		cancel: cancel,
		window: window,
		update: update,
		notify: make(chan struct{}, 1),
	}
	go updateScheduler.run()
	return updateScheduler
}

// Notify schedules a pass. It never blocks.
func (self *UpdateScheduler) Notify() {
	select {
	case self.notify <- struct{}{}:
	default:
	}
}

func (self *UpdateScheduler) run() {
	defer self.cancel()

	for {
		select {
		case <-self.ctx.Done():
			return
		case <-self.notify:
		}
		// leading
		self.runUpdate()

		for scheduled := true; scheduled; {
			select {
			case <-self.ctx.Done():
				return
			case <-time.After(self.window):
			}
			select {
			case <-self.notify:
				// trailing
				self.runUpdate()
			default:
				scheduled = false
			}
		}
	}
}

func (self *UpdateScheduler) runUpdate() {
	HandleError(self.update)
}

func (self *UpdateScheduler) Close() {
	self.cancel()
}
