package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
	"github.com/roach88/unistore/internal/state"
)

// DefaultMaxSteps is the default number of actions one flow may process.
const DefaultMaxSteps = 1000

// Snapshotter is a state that can be flattened to canonical form for
// hashing and journaling.
type Snapshotter interface {
	Snapshot() ir.Object
}

// Engine is the single-writer loop in front of a state store.
//
// Callers Submit actions from any goroutine; the Run goroutine takes them
// in FIFO order, dispatches each one to the store and journals the
// outcome. Subscribers run on the Run goroutine and may Follow with more
// actions for the same flow.
//
// All dispatches must go through the engine. Dispatching on Store()
// directly bypasses the journal and breaks replay.
//
// Thread-safety model:
//   - Submit, Follow, Enqueue, NewFlow, Stop: safe from any goroutine
//   - Run, RunUntilIdle: exactly one goroutine at a time
type Engine[S Snapshotter] struct {
	store   *state.Store[S, ir.Action]
	journal *journal.Journal
	clock   Sequencer
	queue   *eventQueue
	flowGen FlowTokenGenerator
	logger  *slog.Logger

	maxSteps int
	quotas   map[string]*QuotaEnforcer

	current atomic.Pointer[string]
	// reduced is set by the wrapped reducer when it returns without error.
	reduced bool
}

type options struct {
	maxSteps int
	clock    Sequencer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithMaxSteps sets the per-flow step quota.
func WithMaxSteps(maxSteps int) Option {
	return func(o *options) {
		o.maxSteps = maxSteps
	}
}

// WithClock starts the engine on an existing sequencer, usually a Clock
// positioned at the journal's last seq.
func WithClock(c Sequencer) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an engine owning a fresh store built from reducer and
// initial. Every processed action is appended to j.
func New[S Snapshotter](
	reducer state.Reducer[S, ir.Action],
	initial S,
	j *journal.Journal,
	flowGen FlowTokenGenerator,
	opts ...Option,
) *Engine[S] {
	if reducer == nil {
		panic("engine: nil reducer")
	}

	o := options{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewClock()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine[S]{
		journal:  j,
		clock:    o.clock,
		queue:    newEventQueue(),
		flowGen:  flowGen,
		logger:   o.logger,
		maxSteps: o.maxSteps,
		quotas:   make(map[string]*QuotaEnforcer),
	}
	e.store = state.New(func(s S, a ir.Action) (S, error) {
		next, err := reducer(s, a)
		e.reduced = err == nil
		return next, err
	}, initial)
	return e
}

// Store returns the engine's store, for GetState, Subscribe and Bind.
func (e *Engine[S]) Store() *state.Store[S, ir.Action] {
	return e.store
}

// State returns the current state.
func (e *Engine[S]) State() S {
	return e.store.GetState()
}

// Clock returns the engine's sequencer.
func (e *Engine[S]) Clock() Sequencer {
	return e.clock
}

// NewFlow generates a new flow token.
func (e *Engine[S]) NewFlow() string {
	return e.flowGen.Generate()
}

// CurrentFlow returns the flow being processed, or "" between events.
func (e *Engine[S]) CurrentFlow() string {
	if p := e.current.Load(); p != nil {
		return *p
	}
	return ""
}

// Submit starts a new flow with action. Returns the flow token and false
// if the engine has been stopped.
func (e *Engine[S]) Submit(action ir.Action) (string, bool) {
	flow := e.NewFlow()
	return flow, e.queue.Enqueue(Event{Flow: flow, Action: action})
}

// Follow enqueues action in the flow currently being processed. It is
// meant to be called from a subscriber; it returns false when no flow is
// in progress or the engine has been stopped.
func (e *Engine[S]) Follow(action ir.Action) bool {
	flow := e.CurrentFlow()
	if flow == "" {
		return false
	}
	return e.queue.Enqueue(Event{Flow: flow, Action: action})
}

// Enqueue submits a fully formed event. Returns false if stopped.
func (e *Engine[S]) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the number of events waiting.
func (e *Engine[S]) QueueLen() int {
	return e.queue.Len()
}

// Run processes events until ctx is cancelled or Stop is called and the
// queue has drained.
//
// A failing event is logged with its context and processing continues.
// Retrying would make the journal depend on timing.
func (e *Engine[S]) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "seq", e.clock.Current())

	for {
		if event, ok := e.queue.TryDequeue(); ok {
			if err := e.processEvent(ctx, event); err != nil {
				e.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed with the queue, so this fires
			// repeatedly once stopped; return when nothing is left.
			if e.stopped() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// RunUntilIdle processes events, including any Followed while it runs,
// until the queue is empty.
func (e *Engine[S]) RunUntilIdle(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := e.processEvent(ctx, event); err != nil {
			e.logEventError(event, err)
		}
	}
}

// Stop closes the queue. Run returns once the remaining events are done.
func (e *Engine[S]) Stop() {
	e.queue.Close()
}

func (e *Engine[S]) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// processEvent handles one event. Called only from the Run goroutine.
func (e *Engine[S]) processEvent(ctx context.Context, ev Event) error {
	if ev.Flow == "" {
		return &RuntimeError{Code: ErrCodeInvalidEvent, Message: "event has no flow token"}
	}
	if ev.Action.Payload == nil {
		ev.Action.Payload = ir.Object{}
	}
	canonical, err := ir.MarshalCanonical(ev.Action.Payload)
	if err != nil {
		return &RuntimeError{
			Code:      ErrCodeInvalidEvent,
			Message:   fmt.Sprintf("action %s: %v", ev.Action.Type, err),
			FlowToken: ev.Flow,
		}
	}
	// The reducer must see the payload exactly as the journal stores it
	// (NFC strings), or replay would fold different values.
	ev.Action.Payload, err = ir.ParseObject(canonical)
	if err != nil {
		return fmt.Errorf("action %s: reparse payload: %w", ev.Action.Type, err)
	}

	seq := e.clock.Next()
	id, err := ir.ActionID(ev.Flow, ev.Action, seq)
	if err != nil {
		return fmt.Errorf("action id: %w", err)
	}

	entry := journal.Entry{
		ID:        id,
		Seq:       seq,
		FlowToken: ev.Flow,
		Action:    ev.Action,
		IRVersion: ir.IRVersion,
	}

	e.logger.Debug("processing action",
		"id", id,
		"type", ev.Action.Type,
		"flow", ev.Flow,
		"seq", seq,
	)

	quota, ok := e.quotas[ev.Flow]
	if !ok {
		quota = NewQuotaEnforcer(e.maxSteps)
		e.quotas[ev.Flow] = quota
	}
	// Runs after dispatch, so actions Followed by subscribers are counted.
	defer e.releaseQuota(ev.Flow)

	if err := quota.Check(ev.Flow); err != nil {
		e.logger.Error("max steps quota exceeded",
			"flow", ev.Flow,
			"id", id,
			"steps", quota.Current(),
			"limit", e.maxSteps,
			"event", "quota_exceeded",
		)
		entry.Outcome = journal.OutcomeDropped
		entry.Error = err.Error()
	} else {
		entry.Outcome, entry.Error = e.dispatch(ev, seq)
	}

	hash, err := ir.StateHash(e.store.GetState().Snapshot())
	if err != nil {
		return fmt.Errorf("hash state after %s: %w", id, err)
	}
	entry.StateHash = hash

	if err := e.journal.Append(ctx, entry); err != nil {
		return fmt.Errorf("journal %s: %w", id, err)
	}
	return nil
}

// releaseQuota forgets the flow's step count once none of its events is
// queued. The next action in that flow starts a new cascade.
func (e *Engine[S]) releaseQuota(flow string) {
	if e.queue.Pending(flow) == 0 {
		delete(e.quotas, flow)
	}
}

// dispatch runs the action through the store and classifies the result.
func (e *Engine[S]) dispatch(ev Event, seq int64) (outcome journal.Outcome, errMsg string) {
	flow := ev.Flow
	e.current.Store(&flow)
	e.reduced = false

	defer func() {
		e.current.Store(nil)
		r := recover()
		if r == nil {
			return
		}
		if !e.reduced {
			err := newPanicError(ErrCodeReducerPanic, flow, seq, r)
			e.logger.Error("action rejected", "type", ev.Action.Type, "flow", flow, "seq", seq, "error", err)
			outcome, errMsg = journal.OutcomeRejected, err.Error()
			return
		}
		// The transition happened before the subscriber failed.
		err := newPanicError(ErrCodeSubscriberPanic, flow, seq, r)
		e.logger.Error("subscriber panicked", "type", ev.Action.Type, "flow", flow, "seq", seq, "error", err)
		outcome, errMsg = journal.OutcomeApplied, ""
	}()

	if err := e.store.Dispatch(ev.Action); err != nil {
		e.logger.Info("action rejected", "type", ev.Action.Type, "flow", flow, "seq", seq, "error", err)
		return journal.OutcomeRejected, err.Error()
	}

	e.logger.Debug("action applied", "type", ev.Action.Type, "flow", flow, "seq", seq)
	return journal.OutcomeApplied, ""
}

func (e *Engine[S]) logEventError(ev Event, err error) {
	e.logger.Error("event processing failed",
		"type", ev.Action.Type,
		"flow", ev.Flow,
		"payload", ev.Action.Payload,
		"error", err,
	)
}
