// Package colorspace implements the reversible component transform applied to
// the first three components of a JPEG 2000 image.
//
// Reference: ISO/IEC 15444-1:2019 Annex G.2
package colorspace

// RCTForward converts one RGB sample to Y, Cb, Cr
func RCTForward(r, g, b int32) (y, cb, cr int32) {
	y = (r + 2*g + b) >> 2
	cb = b - g
	cr = r - g
	return
}

// RCTInverse converts one Y, Cb, Cr sample back to RGB
func RCTInverse(y, cb, cr int32) (r, g, b int32) {
	g = y - ((cb + cr) >> 2)
	r = cr + g
	b = cb + g
	return
}

// ApplyRCT transforms three equally sized planes in place
func ApplyRCT(c0, c1, c2 []int32) {
	for i := range c0 {
		c0[i], c1[i], c2[i] = RCTForward(c0[i], c1[i], c2[i])
	}
}

// ApplyInverseRCT reverses ApplyRCT in place
func ApplyInverseRCT(c0, c1, c2 []int32) {
	for i := range c0 {
		c0[i], c1[i], c2[i] = RCTInverse(c0[i], c1[i], c2[i])
	}
}
