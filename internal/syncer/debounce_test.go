package syncer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 },
		500*time.Millisecond, 10*time.Millisecond)

	// Quiet period over; nothing else fires.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	d.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 1 },
		500*time.Millisecond, 5*time.Millisecond)

	d.Trigger()
	assert.Eventually(t, func() bool { return calls.Load() == 2 },
		500*time.Millisecond, 5*time.Millisecond)
}
