package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/config"
	"github.com/roach88/unistore/internal/engine"
	"github.com/roach88/unistore/internal/journal"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the unistore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "unistore",
		Short: "unistore - a journaled reducer store",
		Long: `unistore drives the UI shell state through a single reducer store.

Every dispatched action is journaled to SQLite with its outcome and the
resulting state hash, so the state can be rebuilt and audited by replay.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			_, err := opts.Config(cmd)
			return err
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a CUE config file")

	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// Config loads the configuration once: the --config file when given,
// the defaults otherwise. Verbose forces debug logging.
func (o *RootOptions) Config(cmd *cobra.Command) (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}

	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	o.cfg = cfg
	o.logger = cfg.Logger(cmd.ErrOrStderr())
	return cfg, nil
}

// Logger returns the logger built from the configuration.
func (o *RootOptions) Logger(cmd *cobra.Command) *slog.Logger {
	if _, err := o.Config(cmd); err != nil {
		return slog.Default()
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// engineOptions maps the configuration onto engine options.
func (o *RootOptions) engineOptions(cmd *cobra.Command, cfg *config.Config) []engine.Option {
	return []engine.Option{
		engine.WithMaxSteps(cfg.Engine.MaxSteps),
		engine.WithLogger(o.Logger(cmd)),
	}
}

// openJournal opens path, or the configured journal when path is empty.
// With existing set, a missing file is an error instead of a new journal.
func (o *RootOptions) openJournal(cmd *cobra.Command, path string, existing bool) (*journal.Journal, error) {
	cfg, err := o.Config(cmd)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = cfg.Journal.Path
	}

	if existing && path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, WrapExitError(ExitCommandError, "journal not found", err)
		}
	}

	o.Logger(cmd).Debug("opening journal", "path", path)
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
