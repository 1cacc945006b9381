package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterAction struct {
	Type string
}

var errBad = errors.New("bad action")

// counter is the reducer used throughout: INC adds one, BAD fails, anything
// else is ignored.
func counter(n int, a counterAction) (int, error) {
	switch a.Type {
	case "INC":
		return n + 1, nil
	case "BAD":
		return n, errBad
	default:
		return n, nil
	}
}

func inc() counterAction { return counterAction{Type: "INC"} }

func TestNew_InitialState(t *testing.T) {
	s := New(counter, 41)
	assert.Equal(t, 41, s.GetState())
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestNew_NilReducerPanics(t *testing.T) {
	assert.Panics(t, func() {
		New[int, counterAction](nil, 0)
	})
}

func TestDispatch_IncrementTwice(t *testing.T) {
	s := New(counter, 0)

	require.NoError(t, s.Dispatch(inc()))
	require.NoError(t, s.Dispatch(inc()))

	assert.Equal(t, 2, s.GetState())
}

func TestDispatch_StateIsFoldOfActions(t *testing.T) {
	appendReducer := Pure(func(s []string, a string) []string {
		next := make([]string, len(s), len(s)+1)
		copy(next, s)
		return append(next, a)
	})

	actions := []string{"a", "b", "c", "d", "e"}
	s := New(appendReducer, []string{})
	for _, a := range actions {
		require.NoError(t, s.Dispatch(a))
	}

	var want []string
	for _, a := range actions {
		want, _ = appendReducer(want, a)
	}
	assert.Equal(t, want, s.GetState())
}

func TestGetState_Idempotent(t *testing.T) {
	s := New(counter, 0)
	require.NoError(t, s.Dispatch(inc()))

	first := s.GetState()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.GetState())
	}
}

func TestDispatch_ReducerErrorLeavesStateUnchanged(t *testing.T) {
	s := New(counter, 0)
	require.NoError(t, s.Dispatch(inc()))

	calls := 0
	s.Subscribe(func() { calls++ })

	err := s.Dispatch(counterAction{Type: "BAD"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBad)

	assert.Equal(t, 1, s.GetState())
	assert.Equal(t, 0, calls, "subscribers must not run for a rejected action")
}

func TestDispatch_ReducerPanicLeavesStateUnchanged(t *testing.T) {
	s := New(Pure(func(n int, a string) int {
		if a == "boom" {
			panic("boom")
		}
		return n + 1
	}), 0)
	require.NoError(t, s.Dispatch("ok"))

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.Dispatch("boom")
	})

	assert.Equal(t, 1, s.GetState())

	// The lock was released by the panic; the store is still usable.
	require.NoError(t, s.Dispatch("ok"))
	assert.Equal(t, 2, s.GetState())
}

func TestSubscribe_CalledOncePerDispatch(t *testing.T) {
	s := New(counter, 0)
	calls := 0
	s.Subscribe(func() { calls++ })

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 1, calls)

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 2, calls)
}

func TestSubscribe_RegistrationOrder(t *testing.T) {
	s := New(counter, 0)
	var order []int
	for i := 1; i <= 4; i++ {
		s.Subscribe(func() { order = append(order, i) })
	}

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestSubscribe_SeesNewState(t *testing.T) {
	s := New(counter, 0)
	var seen int
	s.Subscribe(func() { seen = s.GetState() })

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 1, seen)
}

func TestSubscribe_AddedDuringDispatchWaitsForNext(t *testing.T) {
	s := New(counter, 0)
	lateCalls := 0
	added := false

	s.Subscribe(func() {
		if !added {
			added = true
			s.Subscribe(func() { lateCalls++ })
		}
	})

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 0, lateCalls, "subscriber added mid-dispatch ran in the same pass")

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 1, lateCalls)
}

func TestUnsubscribe_RemovesOnlyThatRegistration(t *testing.T) {
	s := New(counter, 0)
	var aCalls, bCalls int
	unsubA := s.Subscribe(func() { aCalls++ })
	s.Subscribe(func() { bCalls++ })

	unsubA()
	require.NoError(t, s.Dispatch(inc()))

	assert.Equal(t, 0, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.Equal(t, 1, s.SubscriberCount())
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	s := New(counter, 0)
	unsub := s.Subscribe(func() {})
	s.Subscribe(func() {})

	unsub()
	unsub()
	unsub()

	assert.Equal(t, 1, s.SubscriberCount())
}

func TestUnsubscribe_SameFunctionTwice(t *testing.T) {
	s := New(counter, 0)
	calls := 0
	cb := func() { calls++ }

	unsub1 := s.Subscribe(cb)
	s.Subscribe(cb)

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 2, calls)

	unsub1()
	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 3, calls, "second registration of the same func survives")
}

func TestUnsubscribe_DuringDispatchStillCompletesPass(t *testing.T) {
	s := New(counter, 0)
	var secondCalls int
	var unsubSecond func()

	s.Subscribe(func() { unsubSecond() })
	unsubSecond = s.Subscribe(func() { secondCalls++ })

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 1, secondCalls, "removal takes effect after the current pass")

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 1, secondCalls)
}

func TestSubscribe_NilPanics(t *testing.T) {
	s := New(counter, 0)
	assert.Panics(t, func() { s.Subscribe(nil) })
}

func TestDispatch_ReentrantFromSubscriber(t *testing.T) {
	s := New(counter, 0)
	var seen []int

	s.Subscribe(func() {
		n := s.GetState()
		seen = append(seen, n)
		if n < 3 {
			require.NoError(t, s.Dispatch(inc()))
		}
	})

	require.NoError(t, s.Dispatch(inc()))
	assert.Equal(t, 3, s.GetState())
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDispatch_SubscriberPanicAfterTransition(t *testing.T) {
	s := New(counter, 0)
	laterCalls := 0
	s.Subscribe(func() { panic("subscriber") })
	s.Subscribe(func() { laterCalls++ })

	assert.Panics(t, func() { _ = s.Dispatch(inc()) })
	assert.Equal(t, 1, s.GetState(), "transition happened before notification")
	assert.Equal(t, 0, laterCalls)
}

func TestDispatch_ConcurrentIsSerialized(t *testing.T) {
	s := New(counter, 0)
	var mu sync.Mutex
	notifications := 0
	s.Subscribe(func() {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	const workers, perWorker = 8, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = s.Dispatch(inc())
				_ = s.GetState()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, s.GetState())
	assert.Equal(t, workers*perWorker, notifications)
}

func TestDispatch_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	s := New(counter, 0)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			unsub := s.Subscribe(func() {})
			unsub()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = s.Dispatch(inc())
		}
	}()
	wg.Wait()

	assert.Equal(t, 500, s.GetState())
	assert.Equal(t, 0, s.SubscriberCount())
}
