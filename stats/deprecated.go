package stats

import (
	"testing"

	"github.com/cocosip/go-rasterstats/notify"
	"github.com/cocosip/go-rasterstats/raster"
)

// DefaultDelta is the relative tolerance AssertArray applies when delta <= 0
const DefaultDelta = 1e-4

// AssertArray checks data against positionally given expectations with
// delta as the relative tolerance. It does nothing when data is nil or empty.
//
// Deprecated: use AssertMatch with an Expected value.
func AssertArray(t testing.TB, data *raster.Array, expShape []int, expDType raster.DType,
	expMin, expMax, expMean, expMedian, expStd *float64, delta float64) {
	t.Helper()
	notify.Warn(notify.Deprecation, "stats.AssertArray has been deprecated in favor of stats.AssertMatch")
	if data.Len() == 0 {
		return
	}
	if delta <= 0 {
		delta = DefaultDelta
	}
	AssertMatch(t, data, Expected{
		Shape:  expShape,
		DType:  expDType,
		Min:    expMin,
		Max:    expMax,
		Mean:   expMean,
		Median: expMedian,
		Std:    expStd,
	}, Rel(delta))
}
