package state

import (
	"sync"

	"github.com/google/go-cmp/cmp"
)

// Bind connects a view to a store, the way a connect-style adapter maps
// state to props.
//
// render is called once immediately with selector(GetState()), and again
// after each dispatch whose selection differs from the last rendered one
// (compared with cmp.Equal). The returned function detaches the binding.
//
// The binding subscribes before the first read, so a dispatch racing with
// Bind is rendered rather than lost.
//
// Selections must be comparable by cmp.Equal: avoid unexported fields or
// supply a selector that returns plain data.
func Bind[S, A, P any](s *Store[S, A], selector func(S) P, render func(P)) (unbind func()) {
	var (
		mu       sync.Mutex
		last     P
		rendered bool
	)
	update := func() {
		next := selector(s.GetState())

		mu.Lock()
		if rendered && cmp.Equal(last, next) {
			mu.Unlock()
			return
		}
		last, rendered = next, true
		mu.Unlock()

		render(next)
	}

	unbind = s.Subscribe(update)
	update()
	return unbind
}
