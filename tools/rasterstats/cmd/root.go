package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/roundtrip"
	"github.com/cocosip/go-rasterstats/stats"
)

type rootOptions struct {
	noColor bool
	verbose bool
	logger  *slog.Logger
}

// NewRootCommand builds the rasterstats command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "rasterstats",
		Short: "Summarize and check raster statistics",
		Long: `rasterstats decodes PNG, JPEG, TIFF, BMP and NPY files and reports or
checks their shape, element type and NaN-skipping aggregates.

Examples:
  rasterstats stats img.tif
  rasterstats check img.png --shape 24,32,3 --mean 141.22 --abs 1e-2
  rasterstats roundtrip TestInputs/manifest.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			notify.SetDefault(notify.LogNotifier{Logger: opts.logger})
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug details")

	root.AddCommand(newStatsCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newRoundTripCommand(opts))
	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	prev := notify.Default()
	defer notify.SetDefault(prev)

	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(stderr, color.RedString("Error:"), err)
	return exitCode(err)
}

// errUsage marks errors caused by invalid flags or arguments
var errUsage = errors.New("usage")

// errFailed marks runs where at least one check did not pass
var errFailed = errors.New("checks failed")

// usageArgs marks argument validation failures as usage errors
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return ExitUsageError
	case errors.Is(err, errFailed),
		errors.Is(err, stats.ErrStatisticMismatch),
		errors.Is(err, stats.ErrStructuralMismatch),
		errors.Is(err, roundtrip.ErrRoundTripMismatch):
		return ExitCheckFailure
	}
	return ExitInputError
}
