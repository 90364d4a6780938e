package roundtrip

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-rasterstats/codec"
	"github.com/cocosip/go-rasterstats/fixtures"
	"github.com/cocosip/go-rasterstats/formats/png"
	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
	"github.com/cocosip/go-rasterstats/rasterio"
	"github.com/cocosip/go-rasterstats/stats"
)

func loadSuite(t *testing.T) *Manifest {
	t.Helper()
	in, _ := fixtures.Here()
	m, err := LoadManifest(filepath.Join(in, "manifest.yaml"))
	require.NoError(t, err)
	return m
}

func TestReferenceFiles(t *testing.T) {
	m := loadSuite(t)
	rt := m.Tester("")
	require.NotEmpty(t, m.Cases)

	for _, c := range m.Cases {
		t.Run(c.File, func(t *testing.T) {
			rt.Run(t, c)
		})
	}
}

func TestReferenceBundles(t *testing.T) {
	m := loadSuite(t)
	rt := m.Tester("")
	require.NotEmpty(t, m.Bundles)

	for _, b := range m.Bundles {
		t.Run(b.File, func(t *testing.T) {
			rt.RunBundle(t, b.File, b.Want)
			assert.NoError(t, rt.VerifyBundle(b.File, b.Want))
		})
	}
}

func TestBundleMismatch(t *testing.T) {
	in, _ := fixtures.Here()
	rt := New(in, "")
	err := rt.VerifyBundle("tar-folder.tar", map[string]any{"tar-folder/simple.json": map[string]any{"message": "other"}})
	assert.ErrorIs(t, err, ErrBundleMismatch)
}

// smooth builds an RGB gradient that survives JPEG without clipping
func smooth(t *testing.T, h, w int) *raster.Array {
	t.Helper()
	values := make([]float64, 0, h*w*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				values = append(values, float64(x*3+y*2+c*10+40))
			}
		}
	}
	a, err := raster.New(raster.Uint8, []int{h, w, 3}, values)
	require.NoError(t, err)
	return a
}

// writeJPEG stores a gradient as a JPEG in dir and returns the decoded mean
func writeJPEG(t *testing.T, dir string) (string, float64) {
	t.Helper()
	path := filepath.Join(dir, "img.jpg")
	rw := rasterio.New(rasterio.WithNotifier(&notify.Recorder{}))
	require.NoError(t, rw.Write(path, smooth(t, 16, 16)))

	a, err := rw.Read(path)
	require.NoError(t, err)
	return path, stats.Summarize(a).Mean
}

func TestLossyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, mean := writeJPEG(t, dir)

	rt := New(dir, t.TempDir())
	assert.NoError(t, rt.Verify(Case{File: "img.jpg", Mean: mean, Shape: []int{16, 16, 3}}))
}

func TestVerifyMismatches(t *testing.T) {
	in, _ := fixtures.Here()
	rt := New(in, t.TempDir())

	tests := []struct {
		name    string
		c       Case
		wantErr error
	}{
		{
			name:    "wrong mean",
			c:       Case{File: "img.png", Mean: 140, Shape: []int{24, 32, 3}},
			wantErr: stats.ErrStatisticMismatch,
		},
		{
			name:    "wrong shape",
			c:       Case{File: "img.png", Mean: 141.222222, Shape: []int{32, 24, 3}},
			wantErr: stats.ErrStructuralMismatch,
		},
		{
			name: "wrong dtype",
			c: Case{File: "img.tif", Mean: 21881.5, Shape: []int{20, 30},
				Stats: &stats.Expected{DType: raster.Uint8}},
			wantErr: stats.ErrStructuralMismatch,
		},
		{
			name:    "unknown format",
			c:       Case{File: "manifest.yaml", Shape: []int{1}},
			wantErr: codec.ErrCodecNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rt.Verify(tt.c)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.c.File)
		})
	}
}

func TestMeanMismatchStopsBeforeWrite(t *testing.T) {
	in, _ := fixtures.Here()
	out := t.TempDir()
	rt := New(in, out)

	err := rt.Verify(Case{File: "img.bmp", Mean: 0, Shape: []int{15, 17, 3}})
	var mismatch *stats.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Mismatched(stats.Mean))

	entries, err := filepath.Glob(filepath.Join(out, "*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMeanVariance(t *testing.T) {
	in, _ := fixtures.Here()
	rule := VarianceRule{Scope: ScopeMean, Compiler: "gccgo", Reason: "decoder rounding differs"}
	gccgo := Environment{GOOS: "linux", GOARCH: "amd64", Compiler: "gccgo"}

	t.Run("lossless skipped", func(t *testing.T) {
		rt := &Tester{InputDir: in, Env: gccgo, Variance: []VarianceRule{rule}}
		assert.NoError(t, rt.Verify(Case{File: "img.png", Mean: -1, Shape: []int{24, 32, 3}}))
	})

	t.Run("other compiler checked", func(t *testing.T) {
		rt := &Tester{InputDir: in, Env: Environment{Compiler: "gc"}, Variance: []VarianceRule{rule}}
		assert.ErrorIs(t, rt.Verify(Case{File: "img.png", Mean: -1, Shape: []int{24, 32, 3}}), stats.ErrStatisticMismatch)
	})

	t.Run("lossy always checked", func(t *testing.T) {
		dir := t.TempDir()
		_, mean := writeJPEG(t, dir)
		rt := &Tester{InputDir: dir, Env: gccgo, Variance: []VarianceRule{rule}}

		err := rt.Verify(Case{File: "img.jpg", Mean: mean + 1, Shape: []int{16, 16, 3}})
		assert.ErrorIs(t, err, stats.ErrStatisticMismatch)
	})
}

func TestScenarioSkipped(t *testing.T) {
	in, _ := fixtures.Here()
	rt := &Tester{
		InputDir: in,
		Env:      Environment{GOOS: "plan9"},
		Variance: []VarianceRule{{Scope: ScopeScenario, Format: "tiff", GOOS: "plan9", Reason: "no tiff support"}},
	}

	err := rt.Verify(Case{File: "img.tif", Mean: 21881.5, Shape: []int{20, 30}})
	var skip *SkipError
	require.True(t, errors.As(err, &skip))
	assert.Equal(t, "img.tif", skip.File)
	assert.Equal(t, "no tiff support", skip.Reason)

	assert.NoError(t, rt.Verify(Case{File: "img.png", Mean: 141.222222, Shape: []int{24, 32, 3}}))
}

func TestVarianceRuleMatches(t *testing.T) {
	env := Environment{GOOS: "windows", GOARCH: "arm64", Compiler: "gc"}
	tests := []struct {
		name string
		rule VarianceRule
		file string
		want bool
	}{
		{"empty matches all", VarianceRule{}, "img.png", true},
		{"goos", VarianceRule{GOOS: "windows"}, "img.png", true},
		{"goos differs", VarianceRule{GOOS: "linux"}, "img.png", false},
		{"goarch differs", VarianceRule{GOARCH: "amd64"}, "img.png", false},
		{"compiler", VarianceRule{Compiler: "gc"}, "img.png", true},
		{"format", VarianceRule{Format: "png"}, "img.png", true},
		{"format differs", VarianceRule{Format: "tiff"}, "img.png", false},
		{"file glob", VarianceRule{File: "img.*"}, "img.png", true},
		{"file glob differs", VarianceRule{File: "*.tif"}, "img.png", false},
		{"bad glob", VarianceRule{File: "["}, "img.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(env, "png", tt.file))
		})
	}
}

// stubCodec wraps PNG to misreport lossiness, emit notices, return
// read-only arrays, write undecodable output or refuse to encode
type stubCodec struct {
	png       *png.Codec
	lossy     bool
	warn      bool
	readOnly  bool
	corrupt   bool
	noEncoder bool
}

var errCorruptStub = errors.New("stub: corrupt data")

const corruptMarker = "corrupt"

func (s stubCodec) Encode(w io.Writer, p codec.EncodeParams) error {
	if s.noEncoder {
		return codec.ErrUnsupportedFormat
	}
	if s.warn {
		p.Notify(notify.User, "stub encoder warning")
	}
	if s.corrupt {
		_, err := io.WriteString(w, corruptMarker)
		return err
	}
	return s.png.Encode(w, p)
}

func (s stubCodec) Decode(r io.Reader) (*raster.Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if string(data) == corruptMarker {
		return nil, errCorruptStub
	}
	a, err := s.png.Decode(bytes.NewReader(data))
	if err != nil || !s.readOnly {
		return a, err
	}
	return a.ReadOnly(), nil
}

func (s stubCodec) CanEncode() bool { return !s.noEncoder }

func (stubCodec) Name() string         { return "stub" }
func (stubCodec) Extensions() []string { return []string{"stub"} }
func (s stubCodec) Lossy() bool        { return s.lossy }

func stubTester(t *testing.T, s stubCodec) (*Tester, Case) {
	t.Helper()
	s.png = png.NewCodec()
	reg := codec.NewRegistry()
	reg.Register(s)

	dir := t.TempDir()
	src := codec.NewTestArray(raster.Uint8, 6, 5)
	var buf bytes.Buffer
	require.NoError(t, s.png.Encode(&buf, codec.EncodeParams{Array: src}))
	rw := rasterio.New(rasterio.WithRegistry(reg))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img.stub"), buf.Bytes(), 0o644))

	rt := &Tester{IO: rw, InputDir: dir, OutputDir: t.TempDir()}
	return rt, Case{File: "img.stub", Mean: stats.Summarize(src).Mean, Shape: []int{6, 5}}
}

func TestVerifyStubCodecs(t *testing.T) {
	tests := []struct {
		name    string
		stub    stubCodec
		wantErr error
	}{
		{"lossless", stubCodec{}, nil},
		{"lossy with warning", stubCodec{lossy: true, warn: true}, nil},
		{"lossy without warning", stubCodec{lossy: true}, ErrMissingWarning},
		{"lossless with warning", stubCodec{warn: true}, ErrUnexpectedWarning},
		{"read-only decode", stubCodec{readOnly: true}, ErrNotWritable},
		{"lossy output does not decode", stubCodec{lossy: true, warn: true, corrupt: true}, errCorruptStub},
		{"lossless output does not decode", stubCodec{corrupt: true}, errCorruptStub},
		{"decode only", stubCodec{noEncoder: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, c := stubTester(t, tt.stub)
			err := rt.Verify(c)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompare(t *testing.T) {
	a := codec.NewTestArray(raster.Uint8, 2, 3)
	b := a.Clone()
	require.NoError(t, b.Set(1, 1, 2))

	err := compare("x.png", a, b)
	assert.ErrorIs(t, err, ErrRoundTripMismatch)
	assert.Contains(t, err.Error(), "element 5")

	err = compare("x.png", a, codec.NewTestArray(raster.Uint8, 3, 2))
	assert.ErrorIs(t, err, ErrRoundTripMismatch)
	assert.NoError(t, compare("x.png", a, a.Clone()))
}

func TestRunSkips(t *testing.T) {
	in, _ := fixtures.Here()
	rt := &Tester{
		InputDir: in,
		Variance: []VarianceRule{{Scope: ScopeScenario, File: "img.bmp", Reason: "always"}},
	}
	rt.Run(t, Case{File: "img.bmp", Mean: 0, Shape: []int{1}})
	t.Fatal("Run should have skipped")
}
