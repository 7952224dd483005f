package harness_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b97tsk/harness"
)

func TestHandoffRendezvous(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

	var log []string

	done := false

	myExecutor.Spawn("recv", harness.Loop(func() harness.Operation {
		if done {
			return nil
		}
		var v int
		var ok bool
		return rx.Recv(&v, &ok).Then(harness.Do(func() {
			if !ok {
				done = true
				return
			}
			log = append(log, fmt.Sprintf("recv %d", v))
		}))
	}))

	myExecutor.Spawn("send", harness.Chain(
		tx.Send(1, nil).Then(harness.Do(func() { log = append(log, "sent 1") })),
		tx.Send(2, nil).Then(harness.Do(func() { log = append(log, "sent 2") })),
		tx.Send(3, nil).Then(harness.Do(func() { log = append(log, "sent 3") })),
		harness.Do(tx.Hangup),
	))

	// Every send completes strictly after its value was taken.
	assert.Equal(t, []string{
		"recv 1", "sent 1",
		"recv 2", "sent 2",
		"recv 3", "sent 3",
	}, log)
	assert.True(t, done, "receiver must observe the hangup")
}

func TestHandoffReady(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[string]()

	myExecutor.Spawn("fill", harness.Do(func() { tx.Write("a") }))

	readyDone := false

	myExecutor.Spawn("ready", tx.Ready().Then(harness.Do(func() { readyDone = true })))

	require.False(t, readyDone, "Ready must not complete while the slot is occupied")

	var got string
	var ok bool

	myExecutor.Spawn("take", harness.Do(func() { got, ok = rx.TryRecv() }))

	require.True(t, ok)
	assert.Equal(t, "a", got)
	assert.True(t, readyDone, "taking the value must resume the writability waiter")
}

func TestHandoffWriteOccupiedPanics(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, _ := harness.NewHandoff[int]()

	err := catch(func() {
		myExecutor.Spawn("main", harness.Do(func() {
			tx.Write(1)
			tx.Write(2)
		}))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slot is occupied")
}

func TestHandoffSenderHangup(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

	// A value written before the hangup remains readable.
	myExecutor.Spawn("fill", harness.Do(func() {
		tx.Write(7)
		tx.Hangup()
	}))

	var v int
	var ok bool

	myExecutor.Spawn("drain", rx.Recv(&v, &ok))

	require.True(t, ok)
	assert.Equal(t, 7, v)

	ok = true

	myExecutor.Spawn("closed", rx.Recv(&v, &ok))

	assert.False(t, ok, "a drained channel whose sender hung up reads as closed")
	assert.True(t, rx.Closed())
}

func TestHandoffSenderHangupWakesReader(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

	finished := false
	ok := true

	myExecutor.Spawn("recv", rx.Recv(nil, &ok).Then(harness.Do(func() { finished = true })))

	require.False(t, finished, "nothing to read yet")

	myExecutor.Spawn("drop", harness.Do(tx.Hangup))

	require.True(t, finished, "hangup must resume a parked reader")
	assert.False(t, ok)
}

func TestHandoffReceiverHangup(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

	delivered := true
	finished := false

	myExecutor.Spawn("send", tx.Send(1, &delivered).Then(harness.Do(func() { finished = true })))

	require.False(t, finished, "the send must await the rendezvous")

	myExecutor.Spawn("drop", harness.Do(rx.Hangup))

	require.True(t, finished, "hangup must resume a parked sender")
	assert.False(t, delivered)

	// A send started after the hangup fails without parking.
	delivered = true

	myExecutor.Spawn("late", tx.Send(2, &delivered))

	assert.False(t, delivered)
}

func TestHandoffClose(t *testing.T) {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

	closed := false

	myExecutor.Spawn("fill", harness.Do(func() { tx.Write(1) }))
	myExecutor.Spawn("close", tx.Close().Then(harness.Do(func() { closed = true })))

	require.False(t, closed, "Close must await the flush")
	require.False(t, rx.Closed())

	var v int
	var ok bool

	myExecutor.Spawn("drain", rx.Recv(&v, &ok))

	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, closed)
	assert.True(t, rx.Closed())
}

func TestHandoffManyPairs(t *testing.T) {
	var wg sync.WaitGroup // For keeping track of goroutines.

	var myExecutor harness.Executor

	myExecutor.Autorun(func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			myExecutor.Run()
		}()
	})

	sleep := func(d time.Duration) harness.Operation {
		return func(t *harness.Task) harness.Result {
			var sig harness.Signal
			wg.Add(1) // Keep track of timers too.
			tm := time.AfterFunc(d, func() {
				defer wg.Done()
				myExecutor.Spawn("wake", harness.Do(sig.Notify))
			})
			t.Defer(func() {
				if tm.Stop() {
					wg.Done()
				}
			})
			t.Watch(&sig)
			return t.Yield(harness.Nop())
		}
	}

	const n = 16

	got := make([][]int, n)

	for i := 0; i < n; i++ {
		i := i
		tx, rx := harness.NewHandoff[int]()

		d1 := time.Duration(1+i%7) * time.Millisecond
		d2 := time.Duration(1+i*3%5) * time.Millisecond

		myExecutor.Spawn(fmt.Sprintf("producer/%d", i), harness.Chain(
			sleep(d1),
			tx.Send(100+i, nil),
			sleep(d2),
			tx.Send(200+i, nil),
			harness.Do(tx.Hangup),
		))

		done := false

		myExecutor.Spawn(fmt.Sprintf("consumer/%d", i), harness.Loop(func() harness.Operation {
			if done {
				return nil
			}
			var v int
			var ok bool
			return rx.Recv(&v, &ok).Then(harness.Do(func() {
				if !ok {
					done = true
					return
				}
				got[i] = append(got[i], v)
			}))
		}))
	}

	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, []int{100 + i, 200 + i}, got[i], "pair %d", i)
	}
}
