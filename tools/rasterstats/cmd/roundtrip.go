package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cocosip/go-rasterstats/roundtrip"
)

type roundTripResult struct {
	passed, failed, skipped int
}

func newRoundTripCommand(opts *rootOptions) *cobra.Command {
	var outputDir string
	c := &cobra.Command{
		Use:   "roundtrip <manifest>...",
		Short: "Run the round-trip cases of manifests",
		Long: `Decode every case of a YAML manifest, check its shape and mean, write it
back and, for lossless formats, compare the re-read data with the original.
Bundle entries are decoded and compared with their expected contents.

Re-encoded files go to --output, or to a temporary folder that is removed
afterwards.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var total roundTripResult
			for _, path := range args {
				m, err := roundtrip.LoadManifest(path)
				if err != nil {
					return err
				}
				start := time.Now()
				res := runManifest(cmd.OutOrStdout(), m, outputDir)
				opts.logger.Debug("manifest done", "file", path, "cases", len(m.Cases),
					"bundles", len(m.Bundles), "duration", time.Since(start))
				total.passed += res.passed
				total.failed += res.failed
				total.skipped += res.skipped
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed, %d skipped\n", total.passed, total.failed, total.skipped)
			if total.failed > 0 {
				return fmt.Errorf("%w: %d of %d", errFailed, total.failed, total.passed+total.failed)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&outputDir, "output", "o", "", "Folder receiving re-encoded files")
	return c
}

func runManifest(w io.Writer, m *roundtrip.Manifest, outputDir string) roundTripResult {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var res roundTripResult
	report := func(name string, err error) {
		var skip *roundtrip.SkipError
		switch {
		case err == nil:
			res.passed++
			fmt.Fprintf(w, "%s %s\n", green("PASS"), name)
		case errors.As(err, &skip):
			res.skipped++
			fmt.Fprintf(w, "%s %s (%s)\n", yellow("SKIP"), name, skip.Reason)
		default:
			res.failed++
			fmt.Fprintf(w, "%s %s\n  %v\n", red("FAIL"), name, err)
		}
	}

	rt := m.Tester(outputDir)
	for _, c := range m.Cases {
		report(c.File, rt.Verify(c))
	}
	for _, b := range m.Bundles {
		report(b.File, rt.VerifyBundle(b.File, b.Want))
	}
	return res
}
