package codec

import (
	"github.com/cocosip/go-rasterstats/raster"
)

// NewTestArray creates a deterministic array of the given type and shape for testing.
// Integer types cycle through their range; float types get fractional values.
func NewTestArray(dtype raster.DType, shape ...int) *raster.Array {
	n := 1
	for _, d := range shape {
		n *= d
	}

	modulus := 1 << 8
	switch dtype {
	case raster.Uint16, raster.Uint32, raster.Int32, raster.Int64:
		modulus = 1 << 16
	}

	values := make([]float64, n)
	for i := range values {
		v := float64((i * 7) % modulus)
		switch dtype {
		case raster.Int8, raster.Int16:
			v -= 128
		case raster.Float32, raster.Float64:
			v = v/4 - 10
		}
		values[i] = v
	}

	a, err := raster.New(dtype, shape, values)
	if err != nil {
		panic(err)
	}
	return a
}
