// Package jpeg2000 encodes and decodes lossless JPEG 2000 codestreams: the
// reversible 5/3 wavelet, the reversible component transform, EBCOT Tier-1
// coding and single-tile Tier-2 packets.
package jpeg2000

import (
	"fmt"

	"github.com/cocosip/go-rasterstats/jpeg2000/codestream"
	"github.com/cocosip/go-rasterstats/jpeg2000/colorspace"
	"github.com/cocosip/go-rasterstats/jpeg2000/t1"
	"github.com/cocosip/go-rasterstats/jpeg2000/t2"
	"github.com/cocosip/go-rasterstats/jpeg2000/wavelet"
)

// EncodeParams contains parameters for JPEG 2000 encoding
type EncodeParams struct {
	Width      int
	Height     int
	Components int
	BitDepth   int // 1-16
	IsSigned   bool

	NumLevels       int // wavelet decomposition levels (0-32)
	CodeBlockWidth  int // power of 2, 4-1024
	CodeBlockHeight int // power of 2, 4-1024

	// UseMCT applies the reversible component transform to the first three
	// components
	UseMCT bool
}

// DefaultEncodeParams returns lossless parameters for an image
func DefaultEncodeParams(width, height, components, bitDepth int, isSigned bool) *EncodeParams {
	return &EncodeParams{
		Width:           width,
		Height:          height,
		Components:      components,
		BitDepth:        bitDepth,
		IsSigned:        isSigned,
		NumLevels:       defaultLevels(width, height),
		CodeBlockWidth:  64,
		CodeBlockHeight: 64,
		UseMCT:          components >= 3,
	}
}

// Encoder encodes images as JPEG 2000 codestreams
type Encoder struct {
	params *EncodeParams
}

// NewEncoder creates an encoder with the given parameters
func NewEncoder(params *EncodeParams) *Encoder {
	return &Encoder{params: params}
}

func (e *Encoder) validateParams() error {
	p := e.params
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if p.Components < 1 || p.Components > 16384 {
		return fmt.Errorf("%w: %d components", ErrInvalidParams, p.Components)
	}
	if p.BitDepth < 1 || p.BitDepth > 16 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidParams, p.BitDepth)
	}
	if p.NumLevels < 0 || p.NumLevels > 32 {
		return fmt.Errorf("%w: %d decomposition levels", ErrInvalidParams, p.NumLevels)
	}
	xcb, ycb := log2(p.CodeBlockWidth), log2(p.CodeBlockHeight)
	if xcb < 2 || ycb < 2 || xcb > 10 || ycb > 10 || xcb+ycb > 12 {
		return fmt.Errorf("%w: code-block %dx%d", ErrInvalidParams, p.CodeBlockWidth, p.CodeBlockHeight)
	}
	if p.UseMCT && p.Components < 3 {
		return fmt.Errorf("%w: component transform needs 3 components", ErrInvalidParams)
	}
	return nil
}

// EncodeComponents encodes one row-major plane per component
func (e *Encoder) EncodeComponents(componentData [][]int32) ([]byte, error) {
	if err := e.validateParams(); err != nil {
		return nil, err
	}
	p := e.params
	if len(componentData) != p.Components {
		return nil, fmt.Errorf("%w: got %d planes for %d components", ErrInvalidParams, len(componentData), p.Components)
	}
	lo, hi := sampleRange(p.BitDepth, p.IsSigned)
	for c, plane := range componentData {
		if len(plane) != p.Width*p.Height {
			return nil, fmt.Errorf("%w: plane %d has %d samples, want %d", ErrInvalidParams, c, len(plane), p.Width*p.Height)
		}
		for i, v := range plane {
			if v < lo || v > hi {
				return nil, fmt.Errorf("%w: plane %d sample %d is %d, outside [%d, %d]", ErrInvalidParams, c, i, v, lo, hi)
			}
		}
	}

	planes := e.forwardTransform(componentData)
	xcb, ycb := log2(p.CodeBlockWidth), log2(p.CodeBlockHeight)
	noPrecincts := func(int) (int, int) { return 15, 15 }

	// Tier-1 first: the guard bits must cover the tallest code-block
	guard := 2
	comps := make([][][]*subband, p.Components)
	for c := range comps {
		comps[c] = layoutBands(p.Width, p.Height, p.NumLevels, xcb, ycb, noPrecincts)
		for _, res := range comps[c] {
			for _, sb := range res {
				nx, ny := sb.blockGrid()
				sb.band = t2.NewBand(nx, ny, 0)
				for i, cb := range sb.band.Blocks {
					x, y, w, h := sb.blockRect(i)
					coded := t1.NewEncoder(w, h, sb.orient).Encode(extractBlock(planes[c], p.Width, x, y, w, h))
					cb.Data, cb.NumBitplanes, cb.NumPasses = coded.Data, coded.NumBitplanes, coded.NumPasses
					guard = max(guard, coded.NumBitplanes-(p.BitDepth+bandGain[sb.orient])+1)
				}
			}
		}
	}
	if guard > 7 {
		return nil, fmt.Errorf("%w: coefficients need %d guard bits", ErrInvalidParams, guard)
	}

	// one quality layer in LRCP order: resolution, then component
	var body []byte
	for r := 0; r <= p.NumLevels; r++ {
		for c := range comps {
			bands := make([]*t2.Band, 0, 3)
			for _, sb := range comps[c][r] {
				sb.band.MaxBitplanes = guard + p.BitDepth + bandGain[sb.orient] - 1
				bands = append(bands, sb.band)
			}
			body = append(body, t2.EncodePacket(bands)...)
		}
	}

	var w codestream.Writer
	siz, cod, qcd := e.header(guard)
	w.WriteHeader(siz, cod, qcd)
	w.WriteTile(body)
	return w.Bytes(), nil
}

// forwardTransform level-shifts, decorrelates and wavelet-transforms copies
// of the planes
func (e *Encoder) forwardTransform(componentData [][]int32) [][]int32 {
	p := e.params
	shift := int32(0)
	if !p.IsSigned {
		shift = 1 << (p.BitDepth - 1)
	}
	planes := make([][]int32, len(componentData))
	for c, src := range componentData {
		planes[c] = make([]int32, len(src))
		for i, v := range src {
			planes[c][i] = v - shift
		}
	}
	if p.UseMCT {
		colorspace.ApplyRCT(planes[0], planes[1], planes[2])
	}
	for _, plane := range planes {
		wavelet.ForwardMultilevel(plane, p.Width, p.Height, p.NumLevels)
	}
	return planes
}

func (e *Encoder) header(guard int) (*codestream.SIZSegment, *codestream.CODSegment, *codestream.QCDSegment) {
	p := e.params
	ssiz := uint8(p.BitDepth - 1)
	if p.IsSigned {
		ssiz |= 0x80
	}
	siz := &codestream.SIZSegment{
		Xsiz: uint32(p.Width), Ysiz: uint32(p.Height),
		XTsiz: uint32(p.Width), YTsiz: uint32(p.Height),
		Components: make([]codestream.ComponentSize, p.Components),
	}
	for i := range siz.Components {
		siz.Components[i] = codestream.ComponentSize{Ssiz: ssiz, XRsiz: 1, YRsiz: 1}
	}

	cod := &codestream.CODSegment{
		ProgressionOrder:            codestream.LRCP,
		NumberOfLayers:              1,
		NumberOfDecompositionLevels: uint8(p.NumLevels),
		CodeBlockWidth:              uint8(log2(p.CodeBlockWidth) - 2),
		CodeBlockHeight:             uint8(log2(p.CodeBlockHeight) - 2),
		Transformation:              1,
	}
	if p.UseMCT {
		cod.MultipleComponentTransform = 1
	}

	// reversible: one exponent per subband, no mantissa
	qcd := &codestream.QCDSegment{Sqcd: uint8(guard << 5)}
	qcd.SPqcd = append(qcd.SPqcd, uint8((p.BitDepth+bandGain[bandLL])<<3))
	for r := 1; r <= p.NumLevels; r++ {
		for _, o := range []int{bandHL, bandLH, bandHH} {
			qcd.SPqcd = append(qcd.SPqcd, uint8((p.BitDepth+bandGain[o])<<3))
		}
	}
	return siz, cod, qcd
}

func extractBlock(plane []int32, stride, x0, y0, w, h int) []int32 {
	out := make([]int32, 0, w*h)
	for y := y0; y < y0+h; y++ {
		out = append(out, plane[y*stride+x0:y*stride+x0+w]...)
	}
	return out
}

// sampleRange returns the inclusive range of a depth-bit sample
func sampleRange(depth int, signed bool) (int32, int32) {
	if signed {
		return -(1 << (depth - 1)), 1<<(depth-1) - 1
	}
	return 0, 1<<depth - 1
}

// log2 returns the exponent of a power of two, or -1
func log2(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		return -1
	}
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
