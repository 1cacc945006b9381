// Package state implements the unidirectional state store at the centre of
// unistore.
//
// A Store owns exactly one state value and an ordered list of subscribers.
// State changes only through Dispatch, which runs the reducer supplied at
// construction and then notifies subscribers:
//
//	s := state.New(state.Pure(func(n int, a string) int {
//		if a == "INC" {
//			return n + 1
//		}
//		return n
//	}), 0)
//
//	unsubscribe := s.Subscribe(func() { fmt.Println(s.GetState()) })
//	defer unsubscribe()
//
//	_ = s.Dispatch("INC") // prints 1
//
// # Guarantees
//
//   - After Dispatch returns nil, GetState equals reducer(previous, action).
//     Dispatches are never skipped, reordered or coalesced.
//   - A reducer error (or panic) leaves the state untouched and reaches the
//     caller of Dispatch. Subscribers are not notified.
//   - Subscribers run synchronously, in registration order, before Dispatch
//     returns. Each pass runs over the subscriber list as it was when the
//     transition happened: registrations made during the pass wait for the
//     next dispatch, removals made during the pass take effect afterwards.
//
// # Concurrency
//
// The reducer call and the state replacement happen under a mutex, and so
// does every subscriber list mutation. The mutex is released before
// subscribers run, so subscribers may read state, (un)subscribe, or dispatch
// again. Re-entrant dispatch recurses on the caller's stack; bounding it is
// the caller's job. The reducer itself must not call back into the store.
package state
