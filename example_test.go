package harness_test

import (
	"fmt"

	"github.com/b97tsk/harness"
)

func Example() {
	type directive struct{ Cmd string }
	type message struct{ Event string }

	harness.Run(
		func(h *harness.Handle[directive, message]) harness.Operation {
			var m message
			return harness.Chain(
				h.Send(directive{Cmd: "start"}, nil),
				h.Recv(&m, nil),
				harness.Do(func() { fmt.Println("driver got:", m.Event) }),
			)
		},
		func(c *harness.Context[directive, message]) harness.Operation {
			return harness.Loop(func() harness.Operation {
				var d directive
				var err error
				return c.Recv(&d, &err).Then(harness.Do(func() {
					if err != nil {
						return
					}
					fmt.Println("unit got:", d.Cmd)
					c.Send(message{Event: d.Cmd + "ed"})
				}))
			})
		},
	)
	// Output:
	// unit got: start
	// driver got: started
}

func ExampleSender_Send() {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	tx, rx := harness.NewHandoff[int]()

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
			fmt.Println("took", v)
		}))
	}))

	myExecutor.Spawn("send", harness.Chain(
		tx.Send(1, nil).Then(harness.Do(func() { fmt.Println("delivered 1") })),
		tx.Send(2, nil).Then(harness.Do(func() { fmt.Println("delivered 2") })),
		harness.Do(tx.Hangup),
	))
	// Output:
	// took 1
	// delivered 1
	// took 2
	// delivered 2
}

func ExampleOperation_WithTimeout() {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	var timedOut bool

	myExecutor.Spawn("main", harness.Never().
		WithTimeout(&myExecutor, 0, &timedOut).
		Then(harness.Do(func() { fmt.Println("timed out:", timedOut) })))
	// Output:
	// timed out: true
}

func ExampleSemaphore() {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	sema := harness.NewSemaphore(1)

	var unblock harness.Signal

	myExecutor.Spawn("holder", harness.Chain(
		sema.Acquire(1),
		harness.Do(func() { fmt.Println("holder acquired") }),
		harness.Await(&unblock),
		harness.Do(func() {
			sema.Release(1)
			fmt.Println("holder released")
		}),
	))

	myExecutor.Spawn("waiter", harness.Chain(
		sema.Acquire(1),
		harness.Do(func() { fmt.Println("waiter acquired") }),
	))

	myExecutor.Spawn("main", harness.Do(unblock.Notify))
	// Output:
	// holder acquired
	// holder released
	// waiter acquired
}

func ExampleWaitGroup() {
	var myExecutor harness.Executor

	myExecutor.Autorun(myExecutor.Run)

	var wg harness.WaitGroup

	wg.Add(2)

	var v1, v2 int

	myExecutor.Spawn("v1", harness.Do(func() { v1 = 18; wg.Done() }))
	myExecutor.Spawn("v2", harness.Do(func() { v2 = 24; wg.Done() }))

	myExecutor.Spawn("main", wg.Await().Then(harness.Do(func() {
		fmt.Println("v1 + v2 =", v1+v2)
	})))
	// Output:
	// v1 + v2 = 42
}
