package harness

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
)

// A paniccatcher collects panics out of function calls so that they can be
// rethrown in one batch later, after invariants have been restored.
type paniccatcher struct {
	items []panicitem
}

func (pc *paniccatcher) Rethrow() {
	if len(pc.items) != 0 {
		panic(&panicvalue{items: pc.items})
	}
}

func (pc *paniccatcher) TryCatch(f func()) (ok bool) {
	defer func() {
		if !ok {
			if v := recover(); v != nil {
				pc.items = append(pc.items, panicitem{v, debug.Stack()})
			}
			// recover() returning nil here means f called runtime.Goexit,
			// e.g. by way of t.FailNow. The goroutine is unwinding; let it.
		}
	}()
	f()
	return true
}

type panicvalue struct {
	items []panicitem
	errs  atomic.Pointer[[]error]
}

type panicitem struct {
	value any
	stack []byte
}

func (pv *panicvalue) Error() string {
	var b strings.Builder
	b.WriteString("as follows:")
	for i, p := range pv.items {
		b.WriteString(fmt.Sprintf("\n(%d/%d) panic: %v\n\n", i+1, len(pv.items), p.value))
		b.Write(p.stack)
	}
	return b.String()
}

func (pv *panicvalue) Unwrap() []error {
	if p := pv.errs.Load(); p != nil {
		return *p
	}
	var errs []error
	for _, p := range pv.items {
		if err, ok := p.value.(error); ok {
			errs = append(errs, err)
		}
	}
	pv.errs.Store(&errs)
	return errs
}
