// Package roundtrip decodes reference rasters, checks their statistics, and
// verifies that writing and re-reading them preserves the data.
package roundtrip

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/fixtures"
	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
	"github.com/cocosip/go-rasterstats/rasterio"
	"github.com/cocosip/go-rasterstats/stats"
)

// DefaultMeanTolerance is the absolute tolerance applied to the expected mean
const DefaultMeanTolerance = 1e-4

// Case is one reference file and the values its decoded array must have
type Case struct {
	File  string  `yaml:"file"`
	Mean  float64 `yaml:"mean"`
	Shape []int   `yaml:"shape"`

	// Stats adds optional expectations checked after shape and mean
	Stats     *stats.Expected `yaml:"stats,omitempty"`
	Tolerance stats.Tolerance `yaml:"tolerance,omitempty"`
}

// BundleCase is a reference archive and its expected decoded entries
type BundleCase struct {
	File string         `yaml:"file"`
	Want map[string]any `yaml:"want"`
}

// Tester runs round-trip scenarios against files in InputDir
type Tester struct {
	// IO reads and writes rasters; nil uses a default rasterio.IO
	IO       *rasterio.IO
	InputDir string
	// OutputDir receives re-encoded files; empty uses a fresh temporary folder
	OutputDir string
	// MeanTolerance is the absolute mean tolerance; zero means DefaultMeanTolerance
	MeanTolerance float64
	Env           Environment
	Variance      []VarianceRule
}

// New creates a Tester for the current environment
func New(inputDir, outputDir string) *Tester {
	return &Tester{InputDir: inputDir, OutputDir: outputDir, Env: CurrentEnvironment()}
}

func (rt *Tester) io() *rasterio.IO {
	if rt.IO == nil {
		return rasterio.New()
	}
	return rt.IO
}

func (rt *Tester) meanTolerance() float64 {
	if rt.MeanTolerance > 0 {
		return rt.MeanTolerance
	}
	return DefaultMeanTolerance
}

func (rt *Tester) path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(rt.InputDir, file)
}

// ScenarioSkipped returns the reason a scenario cannot run in rt.Env
func (rt *Tester) ScenarioSkipped(c Case, cd codec.Codec) (string, bool) {
	for _, r := range rt.Variance {
		if r.Scope == ScopeScenario && r.Matches(rt.Env, cd.Name(), c.File) {
			return r.Reason, true
		}
	}
	return "", false
}

// MeanCheckSkipped reports whether rt.Env decodes c differently enough that
// its mean cannot be compared. Lossy formats are always checked.
func (rt *Tester) MeanCheckSkipped(c Case, cd codec.Codec) bool {
	if cd.Lossy() {
		return false
	}
	for _, r := range rt.Variance {
		if r.Scope == ScopeMean && r.Matches(rt.Env, cd.Name(), c.File) {
			return true
		}
	}
	return false
}

// Verify decodes c.File, checks it against c, writes it back, and for
// lossless formats compares the re-read array with the original. Files of
// decode-only codecs stop after the checks. It returns
// a *SkipError when the scenario cannot run in rt.Env.
func (rt *Tester) Verify(c Case) error {
	rw := rt.io()
	src := rt.path(c.File)
	cd, err := rw.Codec(src)
	if err != nil {
		return err
	}
	if reason, skip := rt.ScenarioSkipped(c, cd); skip {
		return &SkipError{File: c.File, Reason: reason}
	}

	img, err := rw.Read(src)
	if err != nil {
		return err
	}

	if err := stats.Check(img, stats.Expected{Shape: c.Shape}, stats.Tolerance{}); err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	if !rt.MeanCheckSkipped(c, cd) {
		exp := stats.Expected{Mean: stats.Float(c.Mean)}
		if err := stats.Check(img, exp, stats.Abs(rt.meanTolerance())); err != nil {
			return fmt.Errorf("%s: %w", c.File, err)
		}
	}
	if c.Stats != nil {
		if err := stats.Check(img, *c.Stats, c.Tolerance); err != nil {
			return fmt.Errorf("%s: %w", c.File, err)
		}
	}
	if !img.Writable() {
		return fmt.Errorf("%s: %w", c.File, ErrNotWritable)
	}
	if !codec.CanEncode(cd) {
		return nil
	}

	outDir := rt.OutputDir
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "roundtrip-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		outDir = tmp
	}
	dst := fixtures.UniqueOutputPath(outDir, src)

	rec := &notify.Recorder{}
	if err := rw.With(rasterio.WithNotifier(rec)).Write(dst, img); err != nil {
		return err
	}

	if cd.Lossy() {
		if !rec.Has(notify.User) {
			return fmt.Errorf("%s: %w", c.File, ErrMissingWarning)
		}
		// lossy output is not compared but must still decode
		if _, err := rw.Read(dst); err != nil {
			return err
		}
		return nil
	}
	if rec.Len() > 0 {
		return fmt.Errorf("%s: %w: %s", c.File, ErrUnexpectedWarning, rec.Notices()[0])
	}

	back, err := rw.Read(dst)
	if err != nil {
		return err
	}
	return compare(c.File, img, back)
}

func compare(file string, want, got *raster.Array) error {
	i, differ := raster.FirstDifferenceNaN(want, got)
	if !differ {
		return nil
	}
	if i < 0 {
		return fmt.Errorf("%s: %w: shape %v, re-read %v", file, ErrRoundTripMismatch, want.Shape(), got.Shape())
	}
	return fmt.Errorf("%s: %w: element %d is %v, re-read %v",
		file, ErrRoundTripMismatch, i, want.Values()[i], got.Values()[i])
}

// Run verifies c as a test, skipping t when the scenario cannot run
func (rt *Tester) Run(t testing.TB, c Case) {
	t.Helper()
	cp := *rt
	if cp.OutputDir == "" {
		cp.OutputDir = t.TempDir()
	}
	err := cp.Verify(c)
	var skip *SkipError
	if errors.As(err, &skip) {
		t.Skip(skip.Error())
	}
	if err != nil {
		t.Fatal(err)
	}
}

// VerifyBundle decodes the archive at file and compares its entries with want
func (rt *Tester) VerifyBundle(file string, want map[string]any) error {
	got, err := rt.io().ReadBundle(rt.path(file))
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("%s: %w: got %v, want %v", file, ErrBundleMismatch, got, want)
	}
	return nil
}

// RunBundle decodes the archive at file as a test and requires want
func (rt *Tester) RunBundle(t testing.TB, file string, want map[string]any) {
	t.Helper()
	got, err := rt.io().ReadBundle(rt.path(file))
	require.NoError(t, err)
	require.Equal(t, want, got)
}
