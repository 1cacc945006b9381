package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	FlowToken string
	Action    string // optional filter on action type
	Outcome   string
	After     int64
	Match     []string // payload key=value pairs
	Limit     int
}

// TraceResult is a slice of the journal.
type TraceResult struct {
	FlowToken string          `json:"flow_token,omitempty"`
	Timeline  []journal.Entry `json:"timeline"`
	Stats     journal.Counts  `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled actions",
		Long: `Show the journal as a timeline: every action in seq order with its
outcome, or only those of one flow.

Examples:
  unistore trace
  unistore trace --flow 0192f1c4-7a2e-7d6b-9c1f-3e2a1b0c9d8e
  unistore trace --action panel/toggle --after 40
  unistore trace --outcome rejected --match panel=chat
  unistore trace --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default from config)")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "only entries of this flow")
	cmd.Flags().StringVar(&opts.Action, "action", "", "only entries of this action type")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only entries with this outcome (applied|rejected|dropped)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only entries with seq greater than this")
	cmd.Flags().StringArrayVar(&opts.Match, "match", nil, "only entries whose payload has key=value (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "at most this many entries")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	j, err := opts.openJournal(cmd, opts.Database, true)
	if err != nil {
		return err
	}
	defer j.Close()

	query, err := opts.query()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	entries, err := j.Query(ctx, query)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		FlowToken: opts.FlowToken,
		Timeline:  entries,
	}
	for _, e := range result.Timeline {
		switch e.Outcome {
		case journal.OutcomeApplied:
			result.Stats.Applied++
		case journal.OutcomeRejected:
			result.Stats.Rejected++
		case journal.OutcomeDropped:
			result.Stats.Dropped++
		}
	}

	return f.Success(result, func(w io.Writer) { writeTraceText(w, result, opts.Verbose) })
}

// query builds the journal query for the flags that are set.
func (o *TraceOptions) query() (journal.Query, error) {
	var preds []journal.Predicate
	if o.FlowToken != "" {
		preds = append(preds, journal.Equals{Column: journal.ColumnFlowToken, Value: o.FlowToken})
	}
	if o.Action != "" {
		preds = append(preds, journal.Equals{Column: journal.ColumnActionType, Value: o.Action})
	}
	if o.Outcome != "" {
		if !journal.Outcome(o.Outcome).Valid() {
			return journal.Query{}, fmt.Errorf("unknown outcome %q", o.Outcome)
		}
		preds = append(preds, journal.Equals{Column: journal.ColumnOutcome, Value: o.Outcome})
	}
	if o.After > 0 {
		preds = append(preds, journal.After{Seq: o.After})
	}
	for _, m := range o.Match {
		key, value, ok := strings.Cut(m, "=")
		if !ok || key == "" {
			return journal.Query{}, fmt.Errorf("invalid --match %q: want key=value", m)
		}
		preds = append(preds, journal.PayloadEquals{Key: key, Value: matchValue(value)})
	}
	if o.Limit < 0 {
		return journal.Query{}, fmt.Errorf("invalid --limit %d", o.Limit)
	}

	q := journal.Query{Limit: o.Limit}
	if len(preds) > 0 {
		q.Filter = journal.And{Predicates: preds}
	}
	return q, nil
}

// matchValue reads a --match value as an integer or boolean when it
// parses as one, and as a string otherwise.
func matchValue(s string) ir.Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ir.Int(n)
	}
	switch s {
	case "true":
		return ir.Bool(true)
	case "false":
		return ir.Bool(false)
	}
	return ir.String(s)
}

func writeTraceText(w io.Writer, r TraceResult, verbose bool) {
	if len(r.Timeline) == 0 {
		if r.FlowToken != "" {
			fmt.Fprintf(w, "No entries found for flow: %s\n", r.FlowToken)
			return
		}
		fmt.Fprintln(w, "No entries found.")
		return
	}

	if r.FlowToken != "" {
		fmt.Fprintf(w, "Flow: %s\n\n", r.FlowToken)
	}
	fmt.Fprintln(w, "Timeline:")
	for _, e := range r.Timeline {
		marker := "✓"
		if e.Outcome != journal.OutcomeApplied {
			marker = "✗"
		}
		fmt.Fprintf(w, "  %s [%d] %s %s\n", marker, e.Seq, e.Outcome, e.Action)
		if e.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", e.Error)
		}
		if verbose {
			fmt.Fprintf(w, "      flow: %s\n", e.FlowToken)
			fmt.Fprintf(w, "      id:   %s\n", e.ID)
			fmt.Fprintf(w, "      hash: %s\n", e.StateHash)
		}
	}

	fmt.Fprintf(w, "\nStats: %d entries (%d applied, %d rejected, %d dropped)\n",
		r.Stats.Total(), r.Stats.Applied, r.Stats.Rejected, r.Stats.Dropped)
}
