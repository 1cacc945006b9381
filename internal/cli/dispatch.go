package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/engine"
	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
	"github.com/roach88/unistore/internal/shell"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Database  string
	Payload   string
	FlowToken string
}

// DispatchResult reports what happened to one dispatched action.
type DispatchResult struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	FlowToken string          `json:"flow_token"`
	Action    ir.Action       `json:"action"`
	Outcome   journal.Outcome `json:"outcome"`
	Error     string          `json:"error,omitempty"`
	State     ir.Object       `json:"state"`
	StateHash string          `json:"state_hash"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <type>",
		Short: "Dispatch one action against the journaled store",
		Long: `Dispatch one action against the journaled shell store.

The store is first restored by replaying the journal, then the action is
reduced and its outcome journaled.

The engine's max_steps quota bounds one cascade: the actions a single
dispatch runs in its flow. Reusing a flow with --flow across invocations
starts a new cascade, so its step count does not carry over.

Exit codes:
  0 - Action applied
  1 - Action rejected or dropped, or the journal does not replay
  2 - Command error (bad payload, unreadable journal, etc.)

Examples:
  unistore dispatch panel/toggle --payload '{"panel":"chat"}'
  unistore dispatch center/show --payload '{"view":"orders"}' --db ./shell.db
  unistore dispatch power/off --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default from config)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "action payload as a JSON object")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token (default: a new UUIDv7); the step quota is per invocation")

	return cmd
}

func runDispatch(ctx context.Context, opts *DispatchOptions, actionType string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	payload, err := ir.ParseObject([]byte(opts.Payload))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodePayload, fmt.Sprintf("invalid payload: %v", err), nil)
	}
	action := ir.NewAction(actionType, payload)

	cfg, err := opts.Config(cmd)
	if err != nil {
		return err
	}
	j, err := opts.openJournal(cmd, opts.Database, false)
	if err != nil {
		return err
	}
	defer j.Close()

	var flowGen engine.FlowTokenGenerator = engine.UUIDv7Generator{}
	if opts.FlowToken != "" {
		flowGen = engine.NewFixedGenerator(opts.FlowToken)
	}

	eng, replayed, err := engine.Restore(ctx, j, shell.Reducer, cfg.Shell, flowGen, opts.engineOptions(cmd, cfg)...)
	if err != nil {
		var details any
		if replayed != nil {
			details = replayed.Divergences
		}
		return f.Fail(ExitFailure, ErrCodeDiverged, err.Error(), details)
	}
	f.VerboseLog("restored %d entries, last seq %d", replayed.Applied+replayed.Rejected+replayed.Dropped, replayed.LastSeq)

	flow, _ := eng.Submit(action)
	if err := eng.RunUntilIdle(ctx); err != nil {
		return WrapExitError(ExitCommandError, "dispatch interrupted", err)
	}

	entry, err := lastFlowEntry(ctx, j, flow)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	state := eng.State().Snapshot()
	result := DispatchResult{
		ID:        entry.ID,
		Seq:       entry.Seq,
		FlowToken: entry.FlowToken,
		Action:    entry.Action,
		Outcome:   entry.Outcome,
		Error:     entry.Error,
		State:     state,
		StateHash: entry.StateHash,
	}

	if entry.Outcome != journal.OutcomeApplied {
		return f.Fail(ExitFailure, ErrCodeRejected,
			fmt.Sprintf("action %s %s: %s", actionType, entry.Outcome, entry.Error), result)
	}
	return f.Success(result, func(w io.Writer) { writeDispatchText(w, result, opts.Verbose) })
}

// lastFlowEntry returns the newest journal entry of flow.
func lastFlowEntry(ctx context.Context, j *journal.Journal, flow string) (journal.Entry, error) {
	entries, err := j.FlowEntries(ctx, flow)
	if err != nil {
		return journal.Entry{}, err
	}
	if len(entries) == 0 {
		return journal.Entry{}, fmt.Errorf("flow %s was not journaled", flow)
	}
	return entries[len(entries)-1], nil
}

func writeDispatchText(w io.Writer, r DispatchResult, verbose bool) {
	fmt.Fprintf(w, "✓ %s (seq %d)\n", r.Action, r.Seq)
	if verbose {
		fmt.Fprintf(w, "  ID:   %s\n", r.ID)
		fmt.Fprintf(w, "  Flow: %s\n", r.FlowToken)
	}
	writeStateText(w, r.State, r.StateHash)
}
