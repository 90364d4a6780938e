package jpeg2000

import (
	"github.com/cocosip/go-rasterstats/jpeg2000/t2"
)

// Subband orientations
const (
	bandLL = iota
	bandHL
	bandLH
	bandHH
)

// bandGain is log2 of the nominal gain of each orientation under the 5/3
// transform; the subband exponent is the bit depth plus the gain
var bandGain = [4]int{0, 1, 1, 2}

// subband locates one subband inside the transformed coefficient plane
type subband struct {
	orient        int
	x0, y0        int
	width, height int
	xcb, ycb      int // code-block exponents
	band          *t2.Band
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// layoutBands returns the subbands of each resolution level, lowest first,
// for a width x height component transformed with numLevels levels. Each
// resolution is a single precinct of (ppx, ppy) exponents returned by
// precinct.
func layoutBands(width, height, numLevels, xcb, ycb int, precinct func(r int) (int, int)) [][]*subband {
	dim := func(level int) (int, int) {
		return ceilDiv(width, 1<<level), ceilDiv(height, 1<<level)
	}
	blockExp := func(r int) (int, int) {
		ppx, ppy := precinct(r)
		if r > 0 {
			ppx, ppy = ppx-1, ppy-1
		}
		return min(xcb, ppx), min(ycb, ppy)
	}

	res := make([][]*subband, numLevels+1)
	lw, lh := dim(numLevels)
	bx, by := blockExp(0)
	res[0] = []*subband{{orient: bandLL, width: lw, height: lh, xcb: bx, ycb: by}}
	for r := 1; r <= numLevels; r++ {
		level := numLevels - r + 1
		lw, lh := dim(level)
		cw, ch := dim(level - 1)
		bx, by := blockExp(r)
		res[r] = []*subband{
			{orient: bandHL, x0: lw, y0: 0, width: cw - lw, height: lh, xcb: bx, ycb: by},
			{orient: bandLH, x0: 0, y0: lh, width: lw, height: ch - lh, xcb: bx, ycb: by},
			{orient: bandHH, x0: lw, y0: lh, width: cw - lw, height: ch - lh, xcb: bx, ycb: by},
		}
	}
	return res
}

// resolutionSize returns the size of resolution r of a width x height
// component
func resolutionSize(width, height, numLevels, r int) (int, int) {
	level := numLevels - r
	return ceilDiv(width, 1<<level), ceilDiv(height, 1<<level)
}

// blockGrid returns the number of code-blocks across and down s
func (s *subband) blockGrid() (int, int) {
	if s.width == 0 || s.height == 0 {
		return 0, 0
	}
	return ceilDiv(s.width, 1<<s.xcb), ceilDiv(s.height, 1<<s.ycb)
}

// blockRect returns the origin and size of code-block i in the coefficient
// plane
func (s *subband) blockRect(i int) (x, y, w, h int) {
	nx, _ := s.blockGrid()
	bw, bh := 1<<s.xcb, 1<<s.ycb
	bx, by := (i%nx)*bw, (i/nx)*bh
	return s.x0 + bx, s.y0 + by, min(bw, s.width-bx), min(bh, s.height-by)
}

// defaultLevels is the largest decomposition count up to 5 that leaves the
// lowest resolution non-empty
func defaultLevels(width, height int) int {
	levels := 5
	for levels > 0 && min(width, height)>>levels == 0 {
		levels--
	}
	return levels
}
