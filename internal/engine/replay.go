package engine

import (
	"context"
	"fmt"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
	"github.com/roach88/unistore/internal/state"
)

// Divergence is a journal entry that replay could not reproduce.
type Divergence struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ReplayResult is the outcome of folding a journal through a reducer.
type ReplayResult[S any] struct {
	State       S            `json:"-"`
	StateHash   string       `json:"state_hash"`
	LastSeq     int64        `json:"last_seq"`
	Applied     int          `json:"applied"`
	Rejected    int          `json:"rejected"`
	Dropped     int          `json:"dropped"`
	Divergences []Divergence `json:"divergences"`
}

// Deterministic reports whether every entry was reproduced exactly.
func (r *ReplayResult[S]) Deterministic() bool {
	return len(r.Divergences) == 0
}

// Replay rebuilds state from the journal.
//
// Applied entries are dispatched in seq order to a fresh store built from
// reducer and initial. Rejected entries are re-run against the reducer,
// which must still refuse them. Dropped entries never reached the reducer
// and are skipped. After every entry the state hash is compared with the
// one recorded; any mismatch is reported as a Divergence, not an error.
//
// Errors are returned only for journal failures or a cancelled ctx.
func Replay[S Snapshotter](
	ctx context.Context,
	j *journal.Journal,
	reducer state.Reducer[S, ir.Action],
	initial S,
) (*ReplayResult[S], error) {
	entries, err := j.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	store := state.New(reducer, initial)
	res := &ReplayResult[S]{Divergences: []Divergence{}}

	diverge := func(e journal.Entry, format string, args ...any) {
		res.Divergences = append(res.Divergences, Divergence{
			Seq:    e.Seq,
			ID:     e.ID,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if id, err := ir.ActionID(e.FlowToken, e.Action, e.Seq); err != nil || id != e.ID {
			diverge(e, "entry id does not match its content")
		}

		switch e.Outcome {
		case journal.OutcomeApplied:
			res.Applied++
			if err := safeDispatch(store, e.Action); err != nil {
				diverge(e, "applied action %s now fails: %v", e.Action.Type, err)
			}
		case journal.OutcomeRejected:
			res.Rejected++
			if err := safeReduce(reducer, store.GetState(), e.Action); err == nil {
				diverge(e, "rejected action %s now succeeds", e.Action.Type)
			}
		case journal.OutcomeDropped:
			res.Dropped++
		default:
			diverge(e, "unknown outcome %q", e.Outcome)
		}

		hash, err := ir.StateHash(store.GetState().Snapshot())
		if err != nil {
			return nil, fmt.Errorf("replay: hash state at seq %d: %w", e.Seq, err)
		}
		if hash != e.StateHash {
			diverge(e, "state hash %s, journal has %s", hash, e.StateHash)
		}
		res.LastSeq = e.Seq
	}

	res.State = store.GetState()
	res.StateHash, err = ir.StateHash(res.State.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("replay: hash final state: %w", err)
	}
	return res, nil
}

// Restore replays j and returns an engine positioned after it: its state
// is the replayed state and its clock continues from the last seq.
// A journal that does not replay deterministically is an error.
func Restore[S Snapshotter](
	ctx context.Context,
	j *journal.Journal,
	reducer state.Reducer[S, ir.Action],
	initial S,
	flowGen FlowTokenGenerator,
	opts ...Option,
) (*Engine[S], *ReplayResult[S], error) {
	res, err := Replay(ctx, j, reducer, initial)
	if err != nil {
		return nil, nil, err
	}
	if !res.Deterministic() {
		d := res.Divergences[0]
		return nil, res, fmt.Errorf("restore: journal diverges at seq %d: %s", d.Seq, d.Reason)
	}

	opts = append(opts, WithClock(NewClockAt(res.LastSeq)))
	return New(reducer, res.State, j, flowGen, opts...), res, nil
}

func safeDispatch[S any](s *state.Store[S, ir.Action], a ir.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrReducerPanic, r)
		}
	}()
	return s.Dispatch(a)
}

func safeReduce[S any](reducer state.Reducer[S, ir.Action], s S, a ir.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrReducerPanic, r)
		}
	}()
	_, err = reducer(s, a)
	return err
}
