package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/unistore/internal/engine"
	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
	"github.com/roach88/unistore/internal/shell"
	"github.com/roach88/unistore/internal/testutil"
)

// Harness holds the per-run wiring.
type Harness struct {
	journal *journal.Journal
	engine  *engine.Engine[shell.State]
	clock   *testutil.DeterministicClock
	flowGen *testutil.SequenceFlowGenerator
	notes   int

	// follow holds the current step's follow actions until its first
	// applied action notifies.
	follow []ir.Action
}

// Run executes a scenario and returns its result. Failed expectations
// and assertions are reported in the Result; the error is reserved for
// scenarios that cannot run at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory journal: %w", err)
	}
	defer j.Close()

	initial, err := initialState(scenario.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	h := &Harness{
		journal: j,
		clock:   testutil.NewDeterministicClock(),
		flowGen: testutil.NewSequenceFlowGenerator(scenario.FlowToken),
	}

	opts := []engine.Option{
		engine.WithClock(h.clock),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	h.engine = engine.New(shell.Reducer, initial, j, h.flowGen, opts...)
	h.engine.Store().Subscribe(h.notify)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	entries, err := j.Entries(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, traceEvent(e))
	}

	final := h.engine.State()
	result.State = final.Snapshot()
	result.StateHash, err = ir.StateHash(result.State)
	if err != nil {
		return nil, err
	}
	result.Notifications = h.notes

	replayed, err := engine.Replay(ctx, j, shell.Reducer, initial)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	for _, d := range replayed.Divergences {
		result.AddError(fmt.Sprintf("replay diverged at seq %d: %s", d.Seq, d.Reason))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) notify() {
	h.notes++
	if len(h.follow) == 0 {
		return
	}
	actions := h.follow
	h.follow = nil
	for _, a := range actions {
		h.engine.Follow(a)
	}
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	label := fmt.Sprintf("steps[%d]", i)
	action, err := stepAction(step)
	if err != nil {
		return fmt.Errorf("%s: payload: %w", label, err)
	}
	follow := make([]ir.Action, len(step.Follow))
	for k, f := range step.Follow {
		if follow[k], err = stepAction(f); err != nil {
			return fmt.Errorf("%s.follow[%d]: payload: %w", label, k, err)
		}
	}

	h.follow = follow
	defer func() { h.follow = nil }()

	flow, ok := h.engine.Submit(action)
	if !ok {
		return fmt.Errorf("%s: engine stopped", label)
	}
	if err := h.engine.RunUntilIdle(ctx); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	entries, err := h.journal.FlowEntries(ctx, flow)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	checks := append([]Step{step}, step.Follow...)
	for k, want := range checks {
		l := label
		if k > 0 {
			l = fmt.Sprintf("%s.follow[%d]", label, k-1)
		}
		if k >= len(entries) {
			result.AddError(fmt.Sprintf("%s %s: nothing was journaled", l, want.Dispatch))
			continue
		}
		checkEntry(l, want, entries[k], result)
	}
	return nil
}

func stepAction(step Step) (ir.Action, error) {
	payload, err := ir.ObjectFromAny(step.Payload)
	if err != nil {
		return ir.Action{}, err
	}
	return ir.NewAction(step.Dispatch, payload), nil
}

func checkEntry(label string, step Step, got journal.Entry, result *Result) {
	if got.Action.Type != step.Dispatch {
		result.AddError(fmt.Sprintf("%s %s: journaled %s instead", label, step.Dispatch, got.Action.Type))
		return
	}
	if step.Expect != "" && got.Outcome != step.Expect {
		result.AddError(fmt.Sprintf("%s %s: expected %s, got %s %s",
			label, step.Dispatch, step.Expect, got.Outcome, got.Error))
	}
	if step.Error != "" && !strings.Contains(got.Error, step.Error) {
		result.AddError(fmt.Sprintf("%s %s: expected error containing %q, got %q",
			label, step.Dispatch, step.Error, got.Error))
	}
}

func initialState(overrides map[string]any) (shell.State, error) {
	if len(overrides) == 0 {
		return shell.Default(), nil
	}
	overlay, err := ir.ObjectFromAny(overrides)
	if err != nil {
		return shell.State{}, err
	}
	return shell.FromSnapshot(ir.Merge(shell.Default().Snapshot(), overlay))
}
