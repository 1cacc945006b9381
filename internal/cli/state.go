package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/engine"
	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/shell"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Database string
}

// StateResult is the current shell state rebuilt from the journal.
type StateResult struct {
	State     ir.Object   `json:"state"`
	StateHash string      `json:"state_hash"`
	LastSeq   int64       `json:"last_seq"`
	Panels    PanelReport `json:"panels"`
}

// PanelReport is the CSS display value of each right-hand panel.
type PanelReport struct {
	Menu  string `json:"menu"`
	Todos string `json:"todos"`
	Chat  string `json:"chat"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the current shell state",
		Long: `Rebuild the shell state by replaying the journal and print it.

Examples:
  unistore state
  unistore state --db ./shell.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal (default from config)")

	return cmd
}

func runState(ctx context.Context, opts *StateOptions, cmd *cobra.Command) error {
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

	res, err := engine.Replay(ctx, j, shell.Reducer, cfg.Shell)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	if !res.Deterministic() {
		return f.Fail(ExitFailure, ErrCodeDiverged,
			fmt.Sprintf("journal diverges at seq %d", res.Divergences[0].Seq), res.Divergences)
	}

	s := res.State
	result := StateResult{
		State:     s.Snapshot(),
		StateHash: res.StateHash,
		LastSeq:   res.LastSeq,
		Panels: PanelReport{
			Menu:  shell.Display(shell.RightMenuVisible(s)),
			Todos: shell.Display(shell.RightTodoVisible(s)),
			Chat:  shell.Display(shell.RightChatVisible(s)),
		},
	}

	return f.Success(result, func(w io.Writer) {
		writeStateText(w, result.State, result.StateHash)
		fmt.Fprintf(w, "Panels: menu=%s todos=%s chat=%s\n",
			result.Panels.Menu, result.Panels.Todos, result.Panels.Chat)
	})
}

// writeStateText prints a snapshot as canonical JSON with its hash.
func writeStateText(w io.Writer, state ir.Object, hash string) {
	data, err := ir.MarshalCanonical(state)
	if err != nil {
		fmt.Fprintf(w, "State: <unprintable: %v>\n", err)
	} else {
		fmt.Fprintf(w, "State: %s\n", data)
	}
	fmt.Fprintf(w, "Hash:  %s\n", hash)
}
