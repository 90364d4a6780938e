package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cocosip/go-rasterstats/raster"
	"github.com/cocosip/go-rasterstats/rasterio"
	"github.com/cocosip/go-rasterstats/stats"
)

type checkFlags struct {
	shape                       []int
	dtype                       string
	min, max, mean, median, std float64
	tol                         stats.Tolerance
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	f := &checkFlags{}
	c := &cobra.Command{
		Use:   "check <file>",
		Short: "Check the statistics of a raster file",
		Long: `Decode a file and compare the statistics given as flags with the observed
ones. Shape and dtype are compared exactly, aggregates within --rel and
--abs. Every given statistic is reported when any of them differ.

Examples:
  rasterstats check img.tif --shape 20,30 --dtype uint16
  rasterstats check img.npy --min -5 --max 12.02 --abs 1e-5`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := f.expected(cmd)
			if err != nil {
				return err
			}
			if exp.Empty() {
				return fmt.Errorf("%w: no statistic given", errUsage)
			}

			a, err := rasterio.Read(args[0])
			if err != nil {
				return err
			}
			opts.logger.Debug("checking", "file", args[0], "array", a.String(), "tolerance", f.tol.String())
			if err := stats.Check(a, exp, f.tol); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("PASS"), args[0])
			return nil
		},
	}

	fl := c.Flags()
	fl.IntSliceVar(&f.shape, "shape", nil, "Expected shape, e.g. 24,32,3")
	fl.StringVar(&f.dtype, "dtype", "", "Expected element type, e.g. uint8")
	fl.Float64Var(&f.min, "min", 0, "Expected minimum")
	fl.Float64Var(&f.max, "max", 0, "Expected maximum")
	fl.Float64Var(&f.mean, "mean", 0, "Expected mean")
	fl.Float64Var(&f.median, "median", 0, "Expected median")
	fl.Float64Var(&f.std, "std", 0, "Expected standard deviation")
	fl.Float64Var(&f.tol.Relative, "rel", 0, "Relative tolerance for aggregates")
	fl.Float64Var(&f.tol.Absolute, "abs", 0, "Absolute tolerance for aggregates")
	return c
}

// expected collects the statistics whose flags were set
func (f *checkFlags) expected(cmd *cobra.Command) (stats.Expected, error) {
	var exp stats.Expected
	fl := cmd.Flags()
	if fl.Changed("shape") {
		exp.Shape = f.shape
	}
	if fl.Changed("dtype") {
		d, err := raster.ParseDType(f.dtype)
		if err != nil {
			return exp, fmt.Errorf("%w: %w", errUsage, err)
		}
		exp.DType = d
	}
	for _, agg := range []struct {
		name string
		v    float64
		dst  **float64
	}{
		{"min", f.min, &exp.Min},
		{"max", f.max, &exp.Max},
		{"mean", f.mean, &exp.Mean},
		{"median", f.median, &exp.Median},
		{"std", f.std, &exp.Std},
	} {
		if fl.Changed(agg.name) {
			*agg.dst = stats.Float(agg.v)
		}
	}
	if err := f.tol.Validate(); err != nil {
		return exp, fmt.Errorf("%w: %w", errUsage, err)
	}
	return exp, nil
}
