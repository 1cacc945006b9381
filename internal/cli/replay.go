package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/engine"
	"github.com/roach88/unistore/internal/shell"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult summarises a verified replay of the journal.
type ReplayResult struct {
	Entries       int                 `json:"entries"`
	Applied       int                 `json:"applied"`
	Rejected      int                 `json:"rejected"`
	Dropped       int                 `json:"dropped"`
	Flows         int                 `json:"flows"`
	LastSeq       int64               `json:"last_seq"`
	StateHash     string              `json:"state_hash"`
	Divergences   []engine.Divergence `json:"divergences"`
	Deterministic bool                `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay the journal twice through the shell reducer and verify that
every entry reproduces its recorded outcome and state hash, and that both
passes end in the same state.

Exit codes:
  0 - The journal replays deterministically
  1 - Divergences detected
  2 - Command error (journal not found, etc.)

Examples:
  unistore replay
  unistore replay --db ./shell.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default from config)")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	cfg, err := opts.Config(cmd)
	if err != nil {
		return err
	}
	j, err := opts.openJournal(cmd, opts.Database, true)
	if err != nil {
		return err
	}
	defer j.Close()

	first, err := engine.Replay(ctx, j, shell.Reducer, cfg.Shell)
	if err != nil {
		return WrapExitError(ExitCommandError, "first replay failed", err)
	}
	second, err := engine.Replay(ctx, j, shell.Reducer, cfg.Shell)
	if err != nil {
		return WrapExitError(ExitCommandError, "second replay failed", err)
	}
	flows, err := j.ListFlows(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list flows", err)
	}

	result := ReplayResult{
		Entries:     first.Applied + first.Rejected + first.Dropped,
		Applied:     first.Applied,
		Rejected:    first.Rejected,
		Dropped:     first.Dropped,
		Flows:       len(flows),
		LastSeq:     first.LastSeq,
		StateHash:   first.StateHash,
		Divergences: first.Divergences,
	}
	if first.StateHash != second.StateHash {
		result.Divergences = append(result.Divergences, engine.Divergence{
			Seq:    second.LastSeq,
			Reason: fmt.Sprintf("second pass ended at %s, first at %s", second.StateHash, first.StateHash),
		})
	}
	result.Deterministic = len(result.Divergences) == 0

	if f.JSON() {
		if !result.Deterministic {
			return f.Fail(ExitFailure, ErrCodeDiverged, "determinism verification failed", result)
		}
		return f.Success(result, nil)
	}
	return writeReplayText(cmd.OutOrStdout(), result, opts.Verbose)
}

func writeReplayText(w io.Writer, r ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d entries in %d flow(s)\n", r.Entries, r.Flows)
	if verbose {
		fmt.Fprintf(w, "  Applied:  %d\n", r.Applied)
		fmt.Fprintf(w, "  Rejected: %d\n", r.Rejected)
		fmt.Fprintf(w, "  Dropped:  %d\n", r.Dropped)
		fmt.Fprintf(w, "  Last seq: %d\n", r.LastSeq)
	}
	fmt.Fprintf(w, "State hash: %s\n", r.StateHash)

	for _, d := range r.Divergences {
		fmt.Fprintf(w, "✗ seq %d: %s\n", d.Seq, d.Reason)
	}

	if r.Deterministic {
		fmt.Fprintln(w, "✓ Journal replays deterministically")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
