package common

import "math"

// dctBasis[x][u] is C(u)/2 * cos((2x+1)u*pi/16), with C(0) = 1/sqrt(2)
var dctBasis = func() (t [8][8]float64) {
	for x := 0; x < 8; x++ {
		for u := 0; u < 8; u++ {
			c := 0.5
			if u == 0 {
				c = 0.5 / math.Sqrt2
			}
			t[x][u] = c * math.Cos(float64(2*x+1)*float64(u)*math.Pi/16)
		}
	}
	return t
}()

// FDCT performs the forward Discrete Cosine Transform of an 8x8 block in
// place. The block holds level-shifted samples in row-major order and
// receives the coefficients in the same order.
func FDCT(block *[64]float64) {
	var tmp [64]float64

	// Rows
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			var sum float64
			for x := 0; x < 8; x++ {
				sum += block[y*8+x] * dctBasis[x][u]
			}
			tmp[y*8+u] = sum
		}
	}

	// Columns
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			var sum float64
			for y := 0; y < 8; y++ {
				sum += tmp[y*8+u] * dctBasis[y][v]
			}
			block[v*8+u] = sum
		}
	}
}

// Quantize divides coefficients by q and rounds half away from zero. Both
// are in natural order.
func Quantize(coef *[64]float64, q *[64]int32, out *[64]int32) {
	for i := 0; i < 64; i++ {
		out[i] = int32(math.Round(coef[i] / float64(q[i])))
	}
}
