package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/unistore/internal/config"
)

// ValidationError is one problem found in a config file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config file against the schema",
		Long: `Validate a CUE config file against the unistore schema without
running anything: unknown fields, out-of-range values and invalid initial
shell states are reported with their position.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	f.VerboseLog("validating %s", path)

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("config not found: %s", path), nil)
	}

	result := ValidationResult{File: path, Valid: err == nil}
	if err != nil {
		result.Errors = []ValidationError{toValidationError(err)}
		if f.JSON() {
			return f.Fail(ExitFailure, ErrCodeConfig, "config is invalid", result)
		}
		w := cmd.OutOrStdout()
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(w, "✗ %s:%d:%d: %s: %s\n", path, e.Line, e.Column, e.Field, e.Message)
			} else {
				fmt.Fprintf(w, "✗ %s: %s: %s\n", path, e.Field, e.Message)
			}
		}
		return NewExitError(ExitFailure, "config is invalid")
	}

	f.VerboseLog("journal %s, max steps %d, center view %s",
		cfg.Journal.Path, cfg.Engine.MaxSteps, cfg.Shell.CenterView)
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid\n", path)
	})
}

func toValidationError(err error) ValidationError {
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		return ValidationError{Field: "config", Message: err.Error()}
	}
	ve := ValidationError{Field: cfgErr.Field, Message: cfgErr.Message}
	if cfgErr.Pos.IsValid() {
		ve.Line = cfgErr.Pos.Line()
		ve.Column = cfgErr.Pos.Column()
	}
	return ve
}
