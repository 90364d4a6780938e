package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cocosip/go-rasterstats/rasterio"
	"github.com/cocosip/go-rasterstats/stats"
)

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var asYAML bool
	c := &cobra.Command{
		Use:   "stats <file>...",
		Short: "Print the statistics of raster files",
		Long: `Print shape, element type and the NaN-skipping min, max, mean, median
and population standard deviation of each file.

With --yaml the output is a list of manifest cases ready to paste into a
round-trip manifest.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cases []manifestCase
			for _, path := range args {
				a, err := rasterio.Read(path)
				if err != nil {
					return err
				}
				s := stats.Summarize(a)
				opts.logger.Debug("decoded", "file", path, "array", a.String())
				if asYAML {
					exp := s.Expected()
					exp.Shape, exp.Mean = nil, nil
					cases = append(cases, manifestCase{File: path, Mean: s.Mean, Shape: s.Shape, Stats: exp})
					continue
				}
				printSummary(cmd.OutOrStdout(), path, s)
			}
			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(map[string]any{"cases": cases}); err != nil {
					return err
				}
				return enc.Close()
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asYAML, "yaml", false, "Print manifest cases instead of a table")
	return c
}

type manifestCase struct {
	File  string         `yaml:"file"`
	Mean  float64        `yaml:"mean"`
	Shape []int          `yaml:"shape,flow"`
	Stats stats.Expected `yaml:"stats"`
}

func printSummary(w io.Writer, path string, s stats.Summary) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	// pad before colouring so escape codes do not count towards the width
	label := func(st stats.Statistic) string { return cyan(fmt.Sprintf("%-7s", st)) }

	fmt.Fprintln(w, bold(path))
	fmt.Fprintf(w, "  %s %v\n", label(stats.Shape), s.Shape)
	fmt.Fprintf(w, "  %s %s\n", label(stats.DType), s.DType)
	for _, row := range []struct {
		s stats.Statistic
		v float64
	}{
		{stats.Min, s.Min},
		{stats.Max, s.Max},
		{stats.Mean, s.Mean},
		{stats.Median, s.Median},
		{stats.Std, s.Std},
	} {
		fmt.Fprintf(w, "  %s %v\n", label(row.s), row.v)
	}
}
