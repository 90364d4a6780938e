package jpeg2000

import (
	"fmt"

	"github.com/cocosip/go-rasterstats/jpeg2000/codestream"
	"github.com/cocosip/go-rasterstats/jpeg2000/colorspace"
	"github.com/cocosip/go-rasterstats/jpeg2000/t1"
	"github.com/cocosip/go-rasterstats/jpeg2000/t2"
	"github.com/cocosip/go-rasterstats/jpeg2000/wavelet"
)

// Decoder decodes reversible single-tile JPEG 2000 codestreams
type Decoder struct {
	width      int
	height     int
	components int
	bitDepth   int
	isSigned   bool

	cs   *codestream.Codestream
	data [][]int32
}

// NewDecoder creates a new JPEG 2000 decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a codestream; the samples are available from GetImageData
func (d *Decoder) Decode(data []byte) error {
	cs, err := codestream.NewParser(data).Parse()
	if err != nil {
		return err
	}
	d.cs = cs
	if err := d.extractImageParameters(); err != nil {
		return err
	}
	if err := checkCoding(cs.COD, cs.QCD, d.components); err != nil {
		return err
	}

	comps, err := d.decodePackets()
	if err != nil {
		return err
	}
	d.reconstruct(comps)
	return nil
}

func (d *Decoder) extractImageParameters() error {
	siz := d.cs.SIZ
	if siz.XOsiz != 0 || siz.YOsiz != 0 || siz.XTOsiz != 0 || siz.YTOsiz != 0 {
		return fmt.Errorf("%w: image or tile offsets", ErrUnsupported)
	}
	if siz.XTsiz < siz.Xsiz || siz.YTsiz < siz.Ysiz {
		return fmt.Errorf("%w: %dx%d tiles in a %dx%d image", ErrUnsupported, siz.XTsiz, siz.YTsiz, siz.Xsiz, siz.Ysiz)
	}
	if siz.Xsiz == 0 || siz.Ysiz == 0 || siz.Xsiz > 1<<16 || siz.Ysiz > 1<<16 {
		return fmt.Errorf("%w: image size %dx%d", ErrUnsupported, siz.Xsiz, siz.Ysiz)
	}

	first := siz.Components[0]
	for i, c := range siz.Components {
		if c.XRsiz != 1 || c.YRsiz != 1 {
			return fmt.Errorf("%w: component %d is subsampled", ErrUnsupported, i)
		}
		if c.Ssiz != first.Ssiz {
			return fmt.Errorf("%w: components differ in precision or sign", ErrUnsupported)
		}
	}
	if first.BitDepth() > 16 {
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupported, first.BitDepth())
	}

	d.width = int(siz.Xsiz)
	d.height = int(siz.Ysiz)
	d.components = len(siz.Components)
	d.bitDepth = first.BitDepth()
	d.isSigned = first.IsSigned()
	return nil
}

func checkCoding(cod *codestream.CODSegment, qcd *codestream.QCDSegment, components int) error {
	if cod.Scod&(codestream.ScodSOP|codestream.ScodEPH) != 0 {
		return fmt.Errorf("%w: SOP or EPH markers", ErrUnsupported)
	}
	if cod.Transformation != 1 {
		return fmt.Errorf("%w: irreversible 9-7 wavelet", ErrUnsupported)
	}
	if cod.CodeBlockStyle != 0 {
		return fmt.Errorf("%w: code-block style 0x%02X", ErrUnsupported, cod.CodeBlockStyle)
	}
	if cod.ProgressionOrder > codestream.CPRL {
		return fmt.Errorf("%w: progression order %d", ErrMalformed, cod.ProgressionOrder)
	}
	if cod.NumberOfLayers == 0 || cod.NumberOfDecompositionLevels > 32 {
		return fmt.Errorf("%w: %d layers, %d levels", ErrMalformed, cod.NumberOfLayers, cod.NumberOfDecompositionLevels)
	}
	if xcb, ycb := cod.CodeBlockSize(); xcb > 10 || ycb > 10 || xcb+ycb > 12 {
		return fmt.Errorf("%w: code-block exponents %d, %d", ErrMalformed, xcb, ycb)
	}
	if cod.MultipleComponentTransform != 0 && components < 3 {
		return fmt.Errorf("%w: component transform with %d components", ErrMalformed, components)
	}
	if qcd.QuantizationStyle() != 0 {
		return fmt.Errorf("%w: quantized coefficients", ErrUnsupported)
	}
	if want := 3*int(cod.NumberOfDecompositionLevels) + 1; len(qcd.SPqcd) != want {
		return fmt.Errorf("%w: %d subband exponents, want %d", ErrMalformed, len(qcd.SPqcd), want)
	}
	return nil
}

// decodePackets lays out every subband, reads the packets in the
// codestream's progression order and returns the subbands per component
// and resolution
func (d *Decoder) decodePackets() ([][][]*subband, error) {
	cod := d.cs.COD
	levels := int(cod.NumberOfDecompositionLevels)
	xcb, ycb := cod.CodeBlockSize()
	exps := d.cs.QCD.Exponents()
	guard := d.cs.QCD.GuardBits()

	for r := 0; r <= levels; r++ {
		ppx, ppy := cod.Precinct(r)
		rw, rh := resolutionSize(d.width, d.height, levels, r)
		if rw > 1<<ppx || rh > 1<<ppy {
			return nil, fmt.Errorf("%w: resolution %d spans several precincts", ErrUnsupported, r)
		}
	}

	comps := make([][][]*subband, d.components)
	for c := range comps {
		comps[c] = layoutBands(d.width, d.height, levels, xcb, ycb, cod.Precinct)
		k := 0
		for _, res := range comps[c] {
			for _, sb := range res {
				nx, ny := sb.blockGrid()
				sb.band = t2.NewBand(nx, ny, guard+exps[k]-1)
				k++
			}
		}
	}

	pos := 0
	tile := d.cs.TileData
	var packetErr error
	forEachPacket(cod.ProgressionOrder, int(cod.NumberOfLayers), levels+1, d.components, func(l, r, c int) bool {
		if pos >= len(tile) {
			packetErr = fmt.Errorf("%w: tile data ends before packet (layer %d, resolution %d, component %d)",
				ErrMalformed, l, r, c)
			return false
		}
		bands := make([]*t2.Band, len(comps[c][r]))
		for i, sb := range comps[c][r] {
			bands[i] = sb.band
		}
		n, err := t2.DecodePacket(tile[pos:], bands, l)
		if err != nil {
			packetErr = fmt.Errorf("%w: %w", ErrMalformed, err)
			return false
		}
		pos += n
		return true
	})
	return comps, packetErr
}

// forEachPacket visits (layer, resolution, component) in progression order
// for a tile with one precinct per resolution
func forEachPacket(order uint8, layers, resolutions, components int, visit func(l, r, c int) bool) {
	switch order {
	case codestream.LRCP:
		for l := 0; l < layers; l++ {
			for r := 0; r < resolutions; r++ {
				for c := 0; c < components; c++ {
					if !visit(l, r, c) {
						return
					}
				}
			}
		}
	case codestream.RLCP:
		for r := 0; r < resolutions; r++ {
			for l := 0; l < layers; l++ {
				for c := 0; c < components; c++ {
					if !visit(l, r, c) {
						return
					}
				}
			}
		}
	case codestream.RPCL:
		for r := 0; r < resolutions; r++ {
			for c := 0; c < components; c++ {
				for l := 0; l < layers; l++ {
					if !visit(l, r, c) {
						return
					}
				}
			}
		}
	default:
		// PCRL and CPRL coincide when every precinct starts at the origin
		for c := 0; c < components; c++ {
			for r := 0; r < resolutions; r++ {
				for l := 0; l < layers; l++ {
					if !visit(l, r, c) {
						return
					}
				}
			}
		}
	}
}

// reconstruct runs Tier-1 on every code-block, inverts the wavelet and
// component transforms and restores the DC level
func (d *Decoder) reconstruct(comps [][][]*subband) {
	levels := int(d.cs.COD.NumberOfDecompositionLevels)
	planes := make([][]int32, d.components)
	for c := range planes {
		plane := make([]int32, d.width*d.height)
		for _, res := range comps[c] {
			for _, sb := range res {
				for i, cb := range sb.band.Blocks {
					if cb.NumPasses == 0 {
						continue
					}
					x0, y0, w, h := sb.blockRect(i)
					coeffs := t1.NewDecoder(w, h, sb.orient).Decode(cb.Data, cb.NumBitplanes, cb.NumPasses)
					for y := 0; y < h; y++ {
						copy(plane[(y0+y)*d.width+x0:], coeffs[y*w:(y+1)*w])
					}
				}
			}
		}
		wavelet.InverseMultilevel(plane, d.width, d.height, levels)
		planes[c] = plane
	}

	if d.cs.COD.MultipleComponentTransform != 0 {
		colorspace.ApplyInverseRCT(planes[0], planes[1], planes[2])
	}

	lo, hi := sampleRange(d.bitDepth, d.isSigned)
	shift := int32(0)
	if !d.isSigned {
		shift = 1 << (d.bitDepth - 1)
	}
	for _, plane := range planes {
		for i, v := range plane {
			plane[i] = min(max(v+shift, lo), hi)
		}
	}
	d.data = planes
}

// GetImageData returns one row-major plane per component
func (d *Decoder) GetImageData() [][]int32 {
	return d.data
}

// GetComponentData returns the plane of one component
func (d *Decoder) GetComponentData(componentIdx int) ([]int32, error) {
	if componentIdx < 0 || componentIdx >= len(d.data) {
		return nil, fmt.Errorf("invalid component index: %d", componentIdx)
	}
	return d.data[componentIdx], nil
}

// Width returns the image width
func (d *Decoder) Width() int {
	return d.width
}

// Height returns the image height
func (d *Decoder) Height() int {
	return d.height
}

// Components returns the number of components
func (d *Decoder) Components() int {
	return d.components
}

// BitDepth returns the sample precision
func (d *Decoder) BitDepth() int {
	return d.bitDepth
}

// IsSigned reports whether samples are signed
func (d *Decoder) IsSigned() bool {
	return d.isSigned
}
