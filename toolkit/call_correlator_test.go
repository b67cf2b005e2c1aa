package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/arcanewizards/arcane/protocol"
)

func TestCallCorrelator(t *testing.T) {
	correlator := NewCallCorrelator()

	sent := []int64{}
	send := func(requestId int64) error {
		sent = append(sent, requestId)
		return nil
	}

	a, err := correlator.Submit(send)
	assert.Equal(t, err, nil)
	b, err := correlator.Submit(send)
	assert.Equal(t, err, nil)
	assert.Equal(t, sent, []int64{1, 2})
	assert.Equal(t, a.RequestId(), int64(1))
	assert.Equal(t, b.RequestId(), int64(2))
	assert.Equal(t, correlator.Pending(), 2)

	// responses may arrive in any order
	ok := correlator.OnResponse(&protocol.CallResponse{
		Type:         protocol.TypeCallResponse,
		Namespace:    protocol.CoreNamespace,
		RequestId:    2,
		Success:      false,
		ErrorMessage: "no",
	})
	assert.Equal(t, ok, true)
	ok = correlator.OnResponse(&protocol.CallResponse{
		Type:        protocol.TypeCallResponse,
		Namespace:   protocol.CoreNamespace,
		RequestId:   1,
		Success:     true,
		ReturnValue: json.RawMessage("true"),
	})
	assert.Equal(t, ok, true)
	assert.Equal(t, correlator.Pending(), 0)

	ctx := context.Background()
	returnValue, err := a.Wait(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, string(returnValue), "true")

	_, err = b.Wait(ctx)
	assert.Equal(t, IsCallError(err), true)
	assert.Equal(t, err.Error(), "no")
	select {
	case <-b.Done():
	default:
		t.Fatal("not done")
	}
	assert.Equal(t, b.Result().Err, err)

	// resolved at most once, unknown ids are ignored
	ok = correlator.OnResponse(&protocol.CallResponse{RequestId: 1, Success: true})
	assert.Equal(t, ok, false)
	ok = correlator.OnResponse(&protocol.CallResponse{RequestId: 99, Success: true})
	assert.Equal(t, ok, false)
}

func TestCallCorrelatorSendError(t *testing.T) {
	correlator := NewCallCorrelator()

	sendErr := errors.New("send failed")
	future, err := correlator.Submit(func(requestId int64) error {
		return sendErr
	})
	assert.Equal(t, future, nil)
	assert.Equal(t, err, sendErr)
	assert.Equal(t, correlator.Pending(), 0)

	// request ids are not reused
	future, err = correlator.Submit(func(requestId int64) error {
		return nil
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, future.RequestId(), int64(2))
}

func TestCallCorrelatorForget(t *testing.T) {
	correlator := NewCallCorrelator()

	future, err := correlator.Submit(func(requestId int64) error {
		return nil
	})
	assert.Equal(t, err, nil)

	// no built-in timeout, the caller imposes one
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = future.Wait(ctx)
	assert.Equal(t, err, context.DeadlineExceeded)
	assert.Equal(t, correlator.Pending(), 1)

	correlator.Forget(future.RequestId())
	assert.Equal(t, correlator.Pending(), 0)
	ok := correlator.OnResponse(&protocol.CallResponse{RequestId: future.RequestId(), Success: true})
	assert.Equal(t, ok, false)
}

func TestCallCorrelatorFailAll(t *testing.T) {
	correlator := NewCallCorrelator()

	futures := []*CallFuture{}
	for range 3 {
		future, err := correlator.Submit(func(requestId int64) error {
			return nil
		})
		assert.Equal(t, err, nil)
		futures = append(futures, future)
	}

	correlator.FailAll(ErrTransportClosed)
	assert.Equal(t, correlator.Pending(), 0)
	for _, future := range futures {
		_, err := future.Wait(context.Background())
		assert.Equal(t, err, ErrTransportClosed)
	}
}
