package harness_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/b97tsk/harness"
)

type command struct {
	Name string
	Stop bool
}

type event struct {
	Name string
}

// worker answers every command with an event and stops when told to.
func worker(c *harness.Context[command, event]) harness.Operation {
	stopped := false
	return harness.Loop(func() harness.Operation {
		if stopped {
			return nil
		}
		var cmd command
		var err error
		return c.Recv(&cmd, &err).Then(harness.Do(func() {
			if err != nil || cmd.Stop {
				stopped = true
				return
			}
			c.Send(event{Name: cmd.Name + "-done"})
		}))
	})
}

var _ = Describe("Run", func() {
	It("completes a scripted exchange", func() {
		var got []string

		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				script := []string{"fetch", "decode", "store"}
				i := 0
				return harness.Loop(func() harness.Operation {
					if i == len(script) {
						return nil
					}
					name := script[i]
					i++
					var ev event
					return harness.Chain(
						h.Send(command{Name: name}, nil),
						h.Recv(&ev, nil),
						harness.Do(func() { got = append(got, ev.Name) }),
					)
				})
			},
			worker,
		)

		Expect(got).To(Equal([]string{"fetch-done", "decode-done", "store-done"}))
	})

	It("passes when the unit finishes first", func() {
		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				return harness.Chain(
					h.Send(command{Stop: true}, nil),
					harness.Never(),
				)
			},
			worker,
		)
	})

	It("collects a batch emitted in one turn", func() {
		var got []string

		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				var e1, e2 event
				return harness.Chain(
					h.Send(command{Name: "split"}, nil),
					h.Recv(&e1, nil),
					h.Recv(&e2, nil),
					harness.Do(func() { got = append(got, e1.Name, e2.Name) }),
				)
			},
			func(c *harness.Context[command, event]) harness.Operation {
				var cmd command
				return c.Recv(&cmd, nil).Then(harness.Do(func() {
					c.SendAll(
						event{Name: cmd.Name + "-1"},
						event{Name: cmd.Name + "-2"},
					)
				})).Then(harness.Never())
			},
		)

		Expect(got).To(Equal([]string{"split-1", "split-2"}))
	})

	It("runs background work spawned by the unit", func() {
		finished := false

		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				var ev event
				return harness.Chain(
					h.Send(command{Name: "kick"}, nil),
					h.Recv(&ev, nil),
					harness.Do(func() { Expect(ev.Name).To(Equal("bg-done")) }),
				)
			},
			func(c *harness.Context[command, event]) harness.Operation {
				var cmd command
				return c.Recv(&cmd, nil).Then(harness.Do(func() {
					c.Spawn("bg", harness.Do(func() {
						finished = true
						c.Send(event{Name: "bg-done"})
					}))
				})).Then(harness.Never())
			},
		)

		Expect(finished).To(BeTrue())
	})

	It("propagates a dropped handle to the unit", func() {
		sawClose := false

		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				return harness.Do(h.Close).Then(harness.Never())
			},
			func(c *harness.Context[command, event]) harness.Operation {
				var cmd command
				var err error
				return c.Recv(&cmd, &err).Then(harness.Do(func() {
					sawClose = errors.Is(err, harness.ErrPeerClosed)
				}))
			},
		)

		Expect(sawClose).To(BeTrue())
	})

	It("tracks state across many rounds", func() {
		total := harness.NewState(0)

		harness.Run(
			func(h *harness.Handle[command, event]) harness.Operation {
				i := 0
				return harness.Loop(func() harness.Operation {
					if i == 5 {
						return nil
					}
					i++
					return h.Send(command{Name: "add"}, nil)
				})
			},
			func(c *harness.Context[command, event]) harness.Operation {
				return harness.Loop(func() harness.Operation {
					var cmd command
					return c.Recv(&cmd, nil).Then(harness.Do(func() {
						total.Update(func(v int) int { return v + 1 })
					}))
				})
			},
		)

		Expect(total.Get()).To(Equal(5))
	})

	It("fails a run that overruns its deadline", func() {
		Expect(func() {
			harness.Run(
				func(h *harness.Handle[command, event]) harness.Operation {
					return harness.Never()
				},
				func(c *harness.Context[command, event]) harness.Operation {
					return harness.Never()
				},
				harness.WithDeadline(20*time.Millisecond),
			)
		}).To(PanicWith(MatchError(ContainSubstring("test timed out instead of completing"))))
	})
})
