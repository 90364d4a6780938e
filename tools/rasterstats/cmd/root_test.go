package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cocosip/go-rasterstats/raster"
	"github.com/cocosip/go-rasterstats/stats"
)

var inputs = filepath.Join("..", "..", "..", "roundtrip", "TestInputs")

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--no-color"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestStats(t *testing.T) {
	code, out, _ := execute(t, "stats", filepath.Join(inputs, "img.tif"))
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "img.tif")
	assert.Contains(t, out, "[20 30]")
	assert.Contains(t, out, "uint16")
	assert.Contains(t, out, "21881.5")
}

func TestSummaryAlignsWithColour(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	a, err := raster.New(raster.Uint8, []int{2}, []float64{1, 3})
	require.NoError(t, err)
	var buf bytes.Buffer
	printSummary(&buf, "x.png", stats.Summarize(a))

	plain := regexp.MustCompile("\x1b\\[[0-9;]*m").ReplaceAllString(buf.String(), "")
	assert.NotEqual(t, plain, buf.String(), "output is coloured")
	assert.Contains(t, plain, "  shape   [2]\n")
	assert.Contains(t, plain, "  dtype   uint8\n")
	assert.Contains(t, plain, "  min     1\n")
	assert.Contains(t, plain, "  median  2\n")
}

func TestStatsYAML(t *testing.T) {
	code, out, _ := execute(t, "stats", "--yaml", filepath.Join(inputs, "img.bmp"))
	require.Equal(t, ExitSuccess, code)

	var doc struct {
		Cases []struct {
			File  string         `yaml:"file"`
			Mean  float64        `yaml:"mean"`
			Shape []int          `yaml:"shape"`
			Stats map[string]any `yaml:"stats"`
		} `yaml:"cases"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Cases, 1)
	assert.Equal(t, []int{15, 17, 3}, doc.Cases[0].Shape)
	assert.InDelta(t, 128.257516, doc.Cases[0].Mean, 1e-4)
	assert.Equal(t, "uint8", doc.Cases[0].Stats["dtype"])
	assert.NotContains(t, doc.Cases[0].Stats, "mean")
}

func TestCheck(t *testing.T) {
	png := filepath.Join(inputs, "img.png")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"pass", []string{"--shape", "24,32,3", "--dtype", "uint8", "--max", "255", "--mean", "141.22", "--abs", "0.01"}, ExitSuccess},
		{"relative", []string{"--mean", "141", "--rel", "0.01"}, ExitSuccess},
		{"exact mean fails", []string{"--mean", "141.22"}, ExitCheckFailure},
		{"shape fails", []string{"--shape", "24,32"}, ExitCheckFailure},
		{"no statistic", []string{}, ExitUsageError},
		{"bad dtype", []string{"--dtype", "complex"}, ExitUsageError},
		{"negative tolerance", []string{"--mean", "1", "--abs", "-1"}, ExitUsageError},
		{"bad flag", []string{"--mean", "abc"}, ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, append([]string{"check", png}, tt.args...)...)
			assert.Equal(t, tt.want, code, stderr)
		})
	}
}

func TestCheckReportsAllStatistics(t *testing.T) {
	code, _, stderr := execute(t, "check", filepath.Join(inputs, "img.png"), "--mean", "1", "--min", "0", "--max", "3")
	require.Equal(t, ExitCheckFailure, code)
	assert.Contains(t, stderr, "mean")
	assert.Contains(t, stderr, "min: 0")
	assert.Contains(t, stderr, "max: expected 3, observed 255")
}

func TestCheckMissingFile(t *testing.T) {
	code, _, _ := execute(t, "check", filepath.Join(t.TempDir(), "none.png"), "--mean", "1")
	assert.Equal(t, ExitInputError, code)
}

func TestRoundTrip(t *testing.T) {
	out := t.TempDir()
	code, stdout, stderr := execute(t, "roundtrip", "-o", out, filepath.Join(inputs, "manifest.yaml"))
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "PASS img.png")
	assert.Contains(t, stdout, "PASS img-16bit.jp2")
	assert.Contains(t, stdout, "PASS img.dcm")
	assert.Contains(t, stdout, "PASS tar-folder.tar")
	assert.Contains(t, stdout, "10 passed, 0 failed, 0 skipped")

	written, err := filepath.Glob(filepath.Join(out, "img-*"))
	require.NoError(t, err)
	// the DICOM decoder is read-only, so img.dcm is never written back
	assert.Len(t, written, 8)
}

func TestRoundTripFailuresAndSkips(t *testing.T) {
	dir := t.TempDir()
	abs, err := filepath.Abs(inputs)
	require.NoError(t, err)
	manifest := "inputs: " + abs + `
cases:
  - file: img.png
    mean: 1
    shape: [24, 32, 3]
  - file: img.tif
    mean: 21881.5
    shape: [20, 30]
variance:
  - scope: scenario
    format: tiff
    reason: not today
`
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	code, stdout, _ := execute(t, "roundtrip", path)
	assert.Equal(t, ExitCheckFailure, code)
	assert.Contains(t, stdout, "FAIL img.png")
	assert.Contains(t, stdout, "SKIP img.tif (not today)")
	assert.Contains(t, stdout, "0 passed, 1 failed, 1 skipped")
}

func TestRoundTripInvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cases: nope\n"), 0o644))
	code, _, stderr := execute(t, "roundtrip", path)
	assert.Equal(t, ExitInputError, code)
	assert.Contains(t, stderr, "invalid manifest")
}

func TestUsage(t *testing.T) {
	code, _, _ := execute(t, "stats")
	assert.Equal(t, ExitUsageError, code)
}
