package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cae/internal/compiler"
	"github.com/roach88/cae/internal/sim"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	World  *WorldSummary              `json:"world,omitempty"`
}

// WorldSummary describes a compiled world.
type WorldSummary struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Walls    int    `json:"walls"`
	Entities int    `json:"entities"`
	Traps    int    `json:"traps"`
}

func summarize(spec *sim.WorldSpec) *WorldSummary {
	return &WorldSummary{
		Name:     spec.Name,
		Width:    spec.Width,
		Height:   spec.Height,
		Walls:    len(spec.Walls),
		Entities: len(spec.Entities),
		Traps:    len(spec.Traps),
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <world.cue>",
		Short: "Compile and validate a world",
		Long: `Compile a CUE world definition and check it without running it.

Reports schema errors (missing fields, malformed positions) with their
source position, then every consistency error: entities outside the grid
or inside walls, shared starting cells, bad stats and duplicate names.

Exit codes:
  0 - World is valid
  1 - Validation failed
  2 - World could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	spec, err := LoadWorldFile(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			details := map[string]any{"path": path}
			if loadErr.Pos.IsValid() {
				details["line"] = loadErr.Pos.Line()
				details["column"] = loadErr.Pos.Column()
			}
			return outputValidateError(formatter, loadErr.Code, loadErr.Error(), details)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Compiled world %s (%dx%d, %d entities)", spec.Name, spec.Width, spec.Height, len(spec.Entities))

	if verrs := compiler.Validate(spec); len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}
	return outputValidateSuccess(formatter, summarize(spec))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, world *WorldSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, World: world})
	}

	fmt.Fprintf(formatter.Writer, "✓ World %s valid (%dx%d, %d entities, %d traps)\n",
		world.Name, world.Width, world.Height, world.Entities, world.Traps)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, message)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		err := formatter.JSON(ValidationResult{Valid: false, Errors: errs}, &CLIError{
			Code:    errs[0].Code,
			Message: errs[0].Message,
		})
		if err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}
	return failed
}
