package tabletop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerCoalescesBroadcastBurst(t *testing.T) {
	var sends atomic.Int32
	sched := NewScheduler(
		func() { sends.Add(1) },
		nil,
		WithBroadcastWindow(30*time.Millisecond),
	)
	defer sched.Stop()

	for i := 0; i < 10; i++ {
		sched.ScheduleBroadcast()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), sends.Load(), "a burst settles into a single send")
}

func TestSchedulerSeparateBurstsSendSeparately(t *testing.T) {
	var sends atomic.Int32
	sched := NewScheduler(
		func() { sends.Add(1) },
		nil,
		WithBroadcastWindow(10*time.Millisecond),
	)
	defer sched.Stop()

	sched.ScheduleBroadcast()
	time.Sleep(50 * time.Millisecond)
	sched.ScheduleBroadcast()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(2), sends.Load())
}

func TestSchedulerSaveDebounce(t *testing.T) {
	var saves atomic.Int32
	sched := NewScheduler(
		nil,
		func() { saves.Add(1) },
		WithSaveWindow(20*time.Millisecond),
	)
	defer sched.Stop()

	sched.ScheduleSave()
	sched.ScheduleSave()
	sched.ScheduleSave()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), saves.Load())
}

func TestSchedulerStopCancelsPendingTimers(t *testing.T) {
	var fired atomic.Int32
	sched := NewScheduler(
		func() { fired.Add(1) },
		func() { fired.Add(1) },
		WithBroadcastWindow(20*time.Millisecond),
		WithSaveWindow(20*time.Millisecond),
	)

	sched.ScheduleBroadcast()
	sched.ScheduleSave()
	sched.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load(), "nothing runs after teardown")
}

func TestSchedulerIgnoresCallsAfterStop(t *testing.T) {
	var fired atomic.Int32
	sched := NewScheduler(func() { fired.Add(1) }, nil,
		WithBroadcastWindow(5*time.Millisecond))
	sched.Stop()

	sched.ScheduleBroadcast()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestSchedulerNilSinksAreSafe(t *testing.T) {
	sched := NewScheduler(nil, nil)
	assert.NotPanics(t, func() {
		sched.ScheduleBroadcast()
		sched.ScheduleSave()
		sched.Stop()
	})
}
