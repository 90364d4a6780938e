package stats

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
)

func array(t *testing.T, dtype raster.DType, shape []int, values ...float64) *raster.Array {
	t.Helper()
	a, err := raster.New(dtype, shape, values)
	require.NoError(t, err)
	return a
}

func TestAggregates(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Summary
	}{
		{
			name:   "one to four",
			values: []float64{1, 2, 3, 4},
			want:   Summary{Min: 1, Max: 4, Mean: 2.5, Median: 2.5, Std: math.Sqrt(1.25)},
		},
		{
			name:   "odd count",
			values: []float64{5, 1, 3},
			want:   Summary{Min: 1, Max: 5, Mean: 3, Median: 3, Std: math.Sqrt(8.0 / 3)},
		},
		{
			name:   "nan skipped",
			values: []float64{1, math.NaN(), 3},
			want:   Summary{Min: 1, Max: 3, Mean: 2, Median: 2, Std: 1},
		},
		{
			name:   "constant",
			values: []float64{7, 7},
			want:   Summary{Min: 7, Max: 7, Mean: 7, Median: 7, Std: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(array(t, raster.Float64, []int{len(tt.values)}, tt.values...))
			assert.Equal(t, tt.want.Min, got.Min)
			assert.Equal(t, tt.want.Max, got.Max)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.Median, got.Median, 1e-12)
			assert.InDelta(t, tt.want.Std, got.Std, 1e-12)
		})
	}
}

func TestAggregatesAllNaN(t *testing.T) {
	got := Summarize(array(t, raster.Float32, []int{2}, math.NaN(), math.NaN()))
	for _, v := range []float64{got.Min, got.Max, got.Mean, got.Median, got.Std} {
		assert.True(t, math.IsNaN(v))
	}
}

func TestExactExpectationsAlwaysPass(t *testing.T) {
	arrays := []*raster.Array{
		array(t, raster.Uint8, []int{4}, 1, 2, 3, 4),
		array(t, raster.Float32, []int{2, 3}, 0.1, 0.2, math.NaN(), -4, 1e6, 3),
		array(t, raster.Int16, []int{2, 2, 1}, -300, 0, 12, 7),
	}
	tolerances := []Tolerance{{}, Abs(1e-4), Rel(1e-6), {Relative: 0.5, Absolute: 2}}

	for _, a := range arrays {
		exp := Summarize(a).Expected()
		for _, tol := range tolerances {
			assert.NoError(t, Check(a, exp, tol), "%v with %v", a, tol)
		}
	}
}

func TestAbsoluteToleranceBoundary(t *testing.T) {
	a := array(t, raster.Uint8, []int{4}, 1, 2, 3, 4)
	const abs, eps = 0.1, 1e-6

	for _, s := range []Statistic{Min, Max, Mean, Median, Std} {
		t.Run(s.String(), func(t *testing.T) {
			observed := Compute(a, s).(float64)
			var outside, inside Expected
			*outside.aggregatePtr(s) = Float(observed - abs - eps)
			*inside.aggregatePtr(s) = Float(observed - abs + eps)

			err := Check(a, outside, Abs(abs))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStatisticMismatch)
			assert.NotErrorIs(t, err, ErrStructuralMismatch)

			assert.NoError(t, Check(a, inside, Abs(abs)))
		})
	}
}

// aggregatePtr gives tests addressable access to an aggregate expectation
func (e *Expected) aggregatePtr(s Statistic) **float64 {
	switch s {
	case Min:
		return &e.Min
	case Max:
		return &e.Max
	case Mean:
		return &e.Mean
	case Median:
		return &e.Median
	}
	return &e.Std
}

func TestCombinedTolerance(t *testing.T) {
	a := array(t, raster.Float64, []int{1}, 100)

	assert.NoError(t, Check(a, Expected{Mean: Float(101)}, Rel(0.01)), "rel*|e| = 1.01")
	assert.Error(t, Check(a, Expected{Mean: Float(102)}, Rel(0.01)))
	assert.NoError(t, Check(a, Expected{Mean: Float(102)}, Tolerance{Relative: 0.01, Absolute: 2}), "absolute wins")
	assert.Error(t, Check(a, Expected{Mean: Float(100.0000001)}, Tolerance{}), "no tolerance is exact")
	assert.NoError(t, Check(a, Expected{Mean: Float(100)}, Tolerance{}))
}

func TestStructuralMismatchIgnoresTolerance(t *testing.T) {
	a := array(t, raster.Uint8, []int{2, 2}, 1, 2, 3, 4)
	huge := Tolerance{Relative: 1e9, Absolute: 1e9}

	for _, tol := range []Tolerance{{}, huge} {
		err := Check(a, Expected{Shape: []int{4}}, tol)
		assert.ErrorIs(t, err, ErrStructuralMismatch)
		assert.NotErrorIs(t, err, ErrStatisticMismatch)

		err = Check(a, Expected{DType: raster.Uint16}, tol)
		assert.ErrorIs(t, err, ErrStructuralMismatch)
	}
	assert.NoError(t, Check(a, Expected{Shape: []int{2, 2}, DType: raster.Uint8}, Tolerance{}))
}

func TestMismatchReportsEveryStatistic(t *testing.T) {
	a := array(t, raster.Uint8, []int{4}, 1, 2, 3, 4)

	err := Check(a, Expected{Shape: []int{5}, Min: Float(1), Mean: Float(3.0), Std: Float(9)}, Abs(1e-4))
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))

	assert.Len(t, mm.Comparisons, 4, "every checked statistic is carried")
	assert.Len(t, mm.Mismatches(), 3)
	assert.True(t, mm.Mismatched(Shape))
	assert.False(t, mm.Mismatched(Min))
	assert.True(t, mm.Mismatched(Mean))
	assert.True(t, mm.Mismatched(Std))
	assert.ErrorIs(t, err, ErrStructuralMismatch)
	assert.ErrorIs(t, err, ErrStatisticMismatch)

	msg := err.Error()
	assert.Contains(t, msg, "shape, mean, std")
	assert.Contains(t, msg, "shape: expected [5], observed [4]")
	assert.Contains(t, msg, "mean: expected 3, observed 2.5")
	assert.Contains(t, msg, "min: 1")
	assert.Contains(t, msg, "abs=0.0001")
}

func TestCheckIntegerMean(t *testing.T) {
	a := array(t, raster.Int64, []int{4}, 1, 2, 3, 4)

	assert.NoError(t, Check(a, Expected{Mean: Float(2.5)}, Abs(1e-4)))
	assert.NoError(t, Check(a, Expected{Std: Float(1.118)}, Abs(1e-3)))

	err := Check(a, Expected{Mean: Float(3.0)}, Abs(1e-4))
	require.ErrorIs(t, err, ErrStatisticMismatch)
	assert.Contains(t, err.Error(), "mean: expected 3, observed 2.5")
}

func TestNaNExpectations(t *testing.T) {
	allNaN := array(t, raster.Float64, []int{2}, math.NaN(), math.NaN())
	err := Check(allNaN, Expected{Mean: Float(math.NaN())}, Tolerance{})
	assert.ErrorIs(t, err, ErrStatisticMismatch, "an expected NaN never matches")
	assert.Error(t, Check(allNaN, Expected{Mean: Float(math.NaN())}, Tolerance{Relative: 1e9, Absolute: 1e9}))
	assert.Error(t, Check(allNaN, Expected{Mean: Float(0)}, Abs(1)))

	finite := array(t, raster.Float64, []int{1}, 1)
	assert.Error(t, Check(finite, Expected{Mean: Float(math.NaN())}, Abs(1)))

	assert.False(t, Tolerance{}.Within(math.NaN(), math.NaN()))

	inf := array(t, raster.Float64, []int{2}, math.Inf(1), 0)
	assert.NoError(t, Check(inf, Expected{Max: Float(math.Inf(1))}, Rel(0.1)))
	assert.Error(t, Check(inf, Expected{Max: Float(1e308)}, Rel(10)))
}

func TestAbsentStatisticsNotComputed(t *testing.T) {
	var computed []Statistic
	orig := compute
	compute = func(a *raster.Array, s Statistic) any {
		computed = append(computed, s)
		return orig(a, s)
	}
	defer func() { compute = orig }()

	a := array(t, raster.Uint8, []int{4}, 1, 2, 3, 4)
	require.NoError(t, Check(a, Expected{Mean: Float(2.5)}, Abs(1e-4)))
	assert.Equal(t, []Statistic{Mean}, computed)

	computed = nil
	require.NoError(t, Check(a, Expected{}, Tolerance{}))
	assert.Empty(t, computed)

	computed = nil
	err := Check(a, Expected{Shape: []int{2}, Median: Float(9)}, Tolerance{})
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, []Statistic{Shape, Median}, computed)
	assert.Len(t, mm.Comparisons, 2)
}

func TestCheckInvalidInput(t *testing.T) {
	a := array(t, raster.Uint8, []int{1}, 1)
	assert.ErrorIs(t, Check(a, Expected{Mean: Float(1)}, Abs(-1)), ErrInvalidTolerance)
	assert.ErrorIs(t, Check(a, Expected{Mean: Float(1)}, Rel(math.NaN())), ErrInvalidTolerance)
	assert.ErrorIs(t, Check(nil, Expected{}, Tolerance{}), ErrNilArray)
	assert.NoError(t, Check(a, Expected{}, Tolerance{}), "nothing expected, nothing checked")
	assert.True(t, Expected{}.Empty())
}

// fatalTB records the first Fatal and stops the calling goroutine like testing.T does
type fatalTB struct {
	testing.TB
	failed bool
	msg    string
}

func (f *fatalTB) Helper() {}

func (f *fatalTB) Fatal(args ...any) {
	f.failed = true
	f.msg = fmt.Sprint(args...)
	runtime.Goexit()
}

func runTB(fn func(tb testing.TB)) *fatalTB {
	tb := &fatalTB{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(tb)
	}()
	<-done
	return tb
}

func TestAssertMatch(t *testing.T) {
	a := array(t, raster.Uint8, []int{4}, 1, 2, 3, 4)

	AssertMatch(t, a, Expected{Shape: []int{4}, DType: raster.Uint8, Mean: Float(2.5)}, Abs(1e-4))

	tb := runTB(func(tb testing.TB) {
		AssertMatch(tb, a, Expected{Mean: Float(3)}, Abs(1e-4))
	})
	assert.True(t, tb.failed)
	assert.Contains(t, tb.msg, "mean: expected 3, observed 2.5")
}

func TestAssertArrayDeprecated(t *testing.T) {
	a := array(t, raster.Uint8, []int{4}, 1, 2, 3, 4)

	var tb *fatalTB
	notices := notify.Capture(func() {
		tb = runTB(func(tb testing.TB) {
			AssertArray(tb, nil, []int{9}, raster.Float64, nil, nil, Float(100), nil, nil, 0)
		})
	})
	assert.False(t, tb.failed, "nil data is a no-op")
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Deprecation, notices[0].Category)

	notices = notify.Capture(func() {
		tb = runTB(func(tb testing.TB) {
			AssertArray(tb, a, []int{4}, raster.Uint8, Float(1), Float(4), Float(2.5001), Float(2.5), nil, 0)
		})
	})
	assert.False(t, tb.failed, "within the default relative delta of 1e-4")
	assert.Len(t, notices, 1)

	notify.Capture(func() {
		tb = runTB(func(tb testing.TB) {
			AssertArray(tb, a, nil, raster.Invalid, nil, nil, Float(2.6), nil, nil, 1e-4)
		})
	})
	assert.True(t, tb.failed)
	assert.Contains(t, tb.msg, "mean")
}

func TestStatisticNames(t *testing.T) {
	names := make([]string, 0, len(All()))
	for _, s := range All() {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"shape", "dtype", "min", "max", "mean", "median", "std"}, names)
	assert.True(t, Shape.Exact())
	assert.True(t, DType.Exact())
	assert.False(t, Mean.Exact())
}
