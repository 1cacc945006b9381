package state

import (
	"fmt"
	"sync"
)

// Reducer computes the next state from the current state and an action.
// It must be pure. A non-nil error rejects the action.
type Reducer[S, A any] func(state S, action A) (S, error)

// Pure adapts a reducer that cannot fail.
func Pure[S, A any](fn func(S, A) S) Reducer[S, A] {
	return func(s S, a A) (S, error) {
		return fn(s, a), nil
	}
}

// subscription is one registration. Identity is the pointer, so the same
// callback registered twice yields two independent subscriptions.
type subscription struct {
	fn func()
}

// Store holds one state value and notifies subscribers after every
// successful dispatch. The zero value is not usable; construct with New.
type Store[S, A any] struct {
	mu      sync.Mutex
	reducer Reducer[S, A]
	state   S
	subs    []*subscription
}

// New creates a store whose state starts as initial.
// It panics if reducer is nil.
func New[S, A any](reducer Reducer[S, A], initial S) *Store[S, A] {
	if reducer == nil {
		panic("state: nil reducer")
	}
	return &Store[S, A]{
		reducer: reducer,
		state:   initial,
	}
}

// GetState returns the current state.
func (s *Store[S, A]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs the reducer on the current state and action. On success the
// result becomes the new state and every subscriber is called, in order,
// before Dispatch returns.
//
// On a reducer error the state is unchanged and the error is returned
// wrapped. A reducer panic propagates unchanged, also leaving state as it
// was. A subscriber panic propagates after the state has been replaced.
func (s *Store[S, A]) Dispatch(action A) error {
	subs, err := s.apply(action)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		sub.fn()
	}
	return nil
}

// apply performs the reducer call and state replacement under the lock and
// returns the subscribers to notify.
func (s *Store[S, A]) apply(action A) ([]*subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.reducer(s.state, action)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	s.state = next

	// subs is copy-on-write, so handing out the current slice is safe.
	return s.subs, nil
}

// Subscribe registers fn to run after every future successful dispatch and
// returns a function that removes exactly this registration. Calling the
// returned function more than once is a no-op. It panics if fn is nil.
func (s *Store[S, A]) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		panic("state: nil subscriber")
	}
	sub := &subscription{fn: fn}

	s.mu.Lock()
	subs := make([]*subscription, len(s.subs), len(s.subs)+1)
	copy(subs, s.subs)
	s.subs = append(subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub) })
	}
}

func (s *Store[S, A]) remove(target *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == target {
			subs := make([]*subscription, 0, len(s.subs)-1)
			subs = append(subs, s.subs[:i]...)
			s.subs = append(subs, s.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store[S, A]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
