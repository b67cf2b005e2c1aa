package toolkit

import (
	"flag"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func init() {
	initGlog()
}

func initGlog() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

func TestIdOrder(t *testing.T) {
	// connections are listed in connect order, which relies on ids being ordered by create time

	a := NewId()
	for range 64 * 1024 {
		b := NewId()
		assert.Equal(t, a.LessThan(b), true)
		assert.Equal(t, b.LessThan(a), false)
		assert.Equal(t, b.LessThan(b), false)
		assert.Equal(t, b == a, false)
		a = b
	}
}

func TestIdString(t *testing.T) {
	a := NewId()
	b, err := ParseId(a.String())
	assert.Equal(t, err, nil)
	assert.Equal(t, a, b)
	assert.Equal(t, len(a.String()), 36)

	// dashes are optional
	c, err := ParseId(strings.ReplaceAll(a.String(), "-", ""))
	assert.Equal(t, err, nil)
	assert.Equal(t, a, c)

	_, err = ParseId("not-an-id")
	assert.NotEqual(t, err, nil)
	_, err = ParseId(strings.Repeat("z", 32))
	assert.NotEqual(t, err, nil)
}

func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func() int]()
	assert.Equal(t, callbacks.Len(), 0)

	a := callbacks.Add(func() int { return 1 })
	b := callbacks.Add(func() int { return 2 })
	callbacks.Add(func() int { return 3 })
	assert.NotEqual(t, a, b)

	values := func() []int {
		out := []int{}
		for _, callback := range callbacks.Get() {
			out = append(out, callback())
		}
		return out
	}
	assert.Equal(t, values(), []int{1, 2, 3})

	// a snapshot is not affected by later changes
	snapshot := callbacks.Get()
	callbacks.Remove(b)
	assert.Equal(t, len(snapshot), 3)
	assert.Equal(t, values(), []int{1, 3})

	// removing twice is a no-op
	callbacks.Remove(b)
	callbacks.Remove(a)
	assert.Equal(t, values(), []int{3})
	assert.Equal(t, callbacks.Len(), 1)
}

func TestHandleError(t *testing.T) {
	var handled error
	r := HandleError(func() {
		panic("boom")
	}, func(err error) {
		handled = err
	})
	assert.NotEqual(t, r, nil)
	assert.NotEqual(t, handled, nil)
	assert.Equal(t, handled.Error(), "boom")

	r = HandleError(func() {})
	assert.Equal(t, r, nil)
}

func TestPanicStack(t *testing.T) {
	stack := panicStack([]byte("goroutine 1 [running]:\n\n\tmain.main()\n  \n"))
	assert.Equal(t, stack, "    goroutine 1 [running]:\n    main.main()\n")
}

func TestTraceWithReturnError(t *testing.T) {
	result, err := TraceWithReturnError("[test]ok", func() (int, error) {
		return 7, nil
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, result, 7)

	_, err = TraceWithReturnError("[test]fail", func() (int, error) {
		return 0, ErrNoRoot
	})
	assert.Equal(t, err, ErrNoRoot)

	ran := false
	Trace("[test]run", func() {
		ran = true
	})
	assert.Equal(t, ran, true)
}
