// Package stats asserts that an array matches a sparse set of expected
// summary statistics.
package stats

import (
	"fmt"
	"math"
	"slices"

	"github.com/cocosip/go-rasterstats/raster"
)

// Statistic identifies one checkable statistic. The set is closed.
type Statistic int

const (
	Shape Statistic = iota
	DType
	Min
	Max
	Mean
	Median
	Std
)

var statisticNames = [...]string{
	Shape:  "shape",
	DType:  "dtype",
	Min:    "min",
	Max:    "max",
	Mean:   "mean",
	Median: "median",
	Std:    "std",
}

// All returns every statistic in checking order
func All() []Statistic {
	return []Statistic{Shape, DType, Min, Max, Mean, Median, Std}
}

func (s Statistic) String() string {
	if s >= 0 && int(s) < len(statisticNames) {
		return statisticNames[s]
	}
	return fmt.Sprintf("statistic(%d)", int(s))
}

// Exact reports whether s is structural and always compared without tolerance
func (s Statistic) Exact() bool {
	return s == Shape || s == DType
}

// Compute returns the observed value of s for a: []int for Shape,
// raster.DType for DType and float64 for the aggregates.
// Aggregates skip NaN elements and are NaN when no element remains.
func Compute(a *raster.Array, s Statistic) any {
	switch s {
	case Shape:
		return a.Shape()
	case DType:
		return a.DType()
	case Min:
		return nanMin(a.Values())
	case Max:
		return nanMax(a.Values())
	case Mean:
		return nanMean(a.Values())
	case Median:
		return nanMedian(a.Values())
	case Std:
		return nanStd(a.Values())
	}
	panic(fmt.Sprintf("stats: unknown statistic %d", int(s)))
}

func nanMin(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(m) || v < m) {
			m = v
		}
	}
	return m
}

func nanMax(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(m) || v > m) {
			m = v
		}
	}
	return m
}

func nanMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func nanMedian(values []float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	slices.Sort(kept)
	mid := len(kept) / 2
	if len(kept)%2 == 1 {
		return kept[mid]
	}
	return (kept[mid-1] + kept[mid]) / 2
}

// nanStd is the population standard deviation
func nanStd(values []float64) float64 {
	mean := nanMean(values)
	if math.IsNaN(mean) {
		return mean
	}
	ss, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			d := v - mean
			ss += d * d
			n++
		}
	}
	return math.Sqrt(ss / float64(n))
}

// Summary holds every statistic of an array
type Summary struct {
	Shape  []int
	DType  raster.DType
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	Std    float64
}

// Summarize computes all statistics of a
func Summarize(a *raster.Array) Summary {
	return Summary{
		Shape:  a.Shape(),
		DType:  a.DType(),
		Min:    nanMin(a.Values()),
		Max:    nanMax(a.Values()),
		Mean:   nanMean(a.Values()),
		Median: nanMedian(a.Values()),
		Std:    nanStd(a.Values()),
	}
}

// Expected returns the summary as a full set of expectations
func (s Summary) Expected() Expected {
	return Expected{
		Shape:  slices.Clone(s.Shape),
		DType:  s.DType,
		Min:    Float(s.Min),
		Max:    Float(s.Max),
		Mean:   Float(s.Mean),
		Median: Float(s.Median),
		Std:    Float(s.Std),
	}
}
