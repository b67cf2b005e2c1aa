package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/arcanewizards/arcane/protocol"
)

// CallError is a call that the server answered with a failure.
type CallError struct {
	RequestId    int64
	ErrorMessage string
}

func (self *CallError) Error() string {
	return self.ErrorMessage
}

func IsCallError(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr)
}

type CallResult struct {
	ReturnValue json.RawMessage
	// a `*CallError` when the server answered with a failure
	Err error
}

// CallFuture is the pending result of one call.
type CallFuture struct {
	requestId int64
	done      chan struct{}
	result    CallResult
}

func (self *CallFuture) RequestId() int64 {
	return self.requestId
}

// Done is closed when the result is available.
func (self *CallFuture) Done() <-chan struct{} {
	return self.done
}

// Result must be called after `Done` is closed.
func (self *CallFuture) Result() CallResult {
	return self.result
}

// Wait blocks for the result. The call stays pending if `ctx` is done first,
// use `CallCorrelator.Forget` to drop it.
func (self *CallFuture) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-self.done:
		return self.result.ReturnValue, self.result.Err
	}
}

func (self *CallFuture) resolve(result CallResult) {
	self.result = result
	close(self.done)
}

// CallCorrelator matches call responses to the calls that were sent, by request id.
// Request ids start at 1 and increase. Calls never time out on their own.
type CallCorrelator struct {
	stateLock     sync.Mutex
	nextRequestId int64
	pending       map[int64]*CallFuture
}

func NewCallCorrelator() *CallCorrelator {
	return &CallCorrelator{
		nextRequestId: 1,
		pending:       map[int64]*CallFuture{},
	}
}

// Submit assigns the next request id, registers the call, then sends it with `send`.
// A send error unregisters the call.
func (self *CallCorrelator) Submit(send func(requestId int64) error) (*CallFuture, error) {
	var future *CallFuture
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		future = &CallFuture{
			requestId: self.nextRequestId,
			done:      make(chan struct{}),
		}
		self.nextRequestId += 1
		self.pending[future.requestId] = future
	}()

	if err := send(future.requestId); err != nil {
		self.Forget(future.requestId)
		return nil, err
	}
	return future, nil
}

// OnResponse resolves the pending call with the response.
// Returns false if no call is pending for the request id.
func (self *CallCorrelator) OnResponse(response *protocol.CallResponse) bool {
	var future *CallFuture
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		future = self.pending[response.RequestId]
		delete(self.pending, response.RequestId)
	}()
	if future == nil {
		return false
	}

	if response.Success {
		future.resolve(CallResult{
			ReturnValue: response.ReturnValue,
		})
	} else {
		future.resolve(CallResult{
			Err: &CallError{
				RequestId:    response.RequestId,
				ErrorMessage: response.ErrorMessage,
			},
		})
	}
	return true
}

// Forget drops a pending call. A later response for it is ignored.
func (self *CallCorrelator) Forget(requestId int64) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	delete(self.pending, requestId)
}

// FailAll resolves every pending call with `err`, e.g. when the connection closes.
func (self *CallCorrelator) FailAll(err error) {
	var futures []*CallFuture
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		for requestId, future := range self.pending {
			futures = append(futures, future)
			delete(self.pending, requestId)
		}
	}()
	for _, future := range futures {
		future.resolve(CallResult{
			Err: err,
		})
	}
}

func (self *CallCorrelator) Pending() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.pending)
}
