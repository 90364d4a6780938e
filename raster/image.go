package raster

import (
	"fmt"
	"image"
	"image/color"
)

// FromImage converts a decoded image into an array.
//
// Gray images (and paletted images whose palette is entirely opaque gray)
// become (H, W) arrays. Colour images become (H, W, 3) when opaque and
// (H, W, 4) otherwise. 16-bit images produce uint16 elements, everything
// else uint8.
func FromImage(m image.Image) *Array {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	switch im := m.(type) {
	case *image.Gray:
		data := make([]float64, 0, w*h)
		for y := 0; y < h; y++ {
			row := im.Pix[y*im.Stride : y*im.Stride+w]
			for _, v := range row {
				data = append(data, float64(v))
			}
		}
		return &Array{shape: []int{h, w}, dtype: Uint8, data: data}
	case *image.Gray16:
		data := make([]float64, 0, w*h)
		for y := 0; y < h; y++ {
			row := im.Pix[y*im.Stride : y*im.Stride+2*w]
			for x := 0; x < w; x++ {
				data = append(data, float64(uint16(row[2*x])<<8|uint16(row[2*x+1])))
			}
		}
		return &Array{shape: []int{h, w}, dtype: Uint16, data: data}
	case *image.Paletted:
		if grayPalette(im.Palette) {
			data := make([]float64, 0, w*h)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					r, _, _, _ := im.Palette[im.ColorIndexAt(b.Min.X+x, b.Min.Y+y)].RGBA()
					data = append(data, float64(r>>8))
				}
			}
			return &Array{shape: []int{h, w}, dtype: Uint8, data: data}
		}
	}

	channels := 4
	if o, ok := m.(interface{ Opaque() bool }); ok && o.Opaque() {
		channels = 3
	}

	wide := false
	switch m.(type) {
	case *image.RGBA64, *image.NRGBA64:
		wide = true
	}

	data := make([]float64, 0, w*h*channels)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var px [4]float64
			if wide {
				c := color.NRGBA64Model.Convert(m.At(x, y)).(color.NRGBA64)
				px = [4]float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
			} else {
				c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
				px = [4]float64{float64(c.R), float64(c.G), float64(c.B), float64(c.A)}
			}
			data = append(data, px[:channels]...)
		}
	}

	dtype := Uint8
	if wide {
		dtype = Uint16
	}
	return &Array{shape: []int{h, w, channels}, dtype: dtype, data: data}
}

func grayPalette(p color.Palette) bool {
	for _, c := range p {
		r, g, b, a := c.RGBA()
		if r != g || g != b || a != 0xffff {
			return false
		}
	}
	return len(p) > 0
}

// ToImage converts an (H, W), (H, W, 1), (H, W, 3) or (H, W, 4) array of
// uint8 or uint16 elements into an image
func ToImage(a *Array) (image.Image, error) {
	if a.dtype != Uint8 && a.dtype != Uint16 {
		return nil, fmt.Errorf("%w: dtype %s", ErrNotImage, a.dtype)
	}

	var h, w, c int
	switch len(a.shape) {
	case 2:
		h, w, c = a.shape[0], a.shape[1], 1
	case 3:
		h, w, c = a.shape[0], a.shape[1], a.shape[2]
	default:
		return nil, fmt.Errorf("%w: shape %v", ErrNotImage, a.shape)
	}
	if c != 1 && c != 3 && c != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrNotImage, c)
	}

	rect := image.Rect(0, 0, w, h)
	if c == 1 {
		if a.dtype == Uint8 {
			im := image.NewGray(rect)
			for i, v := range a.data {
				im.Pix[i] = uint8(v)
			}
			return im, nil
		}
		im := image.NewGray16(rect)
		for i, v := range a.data {
			im.Pix[2*i] = uint8(uint16(v) >> 8)
			im.Pix[2*i+1] = uint8(uint16(v))
		}
		return im, nil
	}

	if a.dtype == Uint8 {
		im := image.NewNRGBA(rect)
		for i := 0; i < w*h; i++ {
			px := a.data[i*c : i*c+c]
			im.Pix[4*i], im.Pix[4*i+1], im.Pix[4*i+2], im.Pix[4*i+3] = uint8(px[0]), uint8(px[1]), uint8(px[2]), 0xff
			if c == 4 {
				im.Pix[4*i+3] = uint8(px[3])
			}
		}
		return im, nil
	}

	im := image.NewNRGBA64(rect)
	for i := 0; i < w*h; i++ {
		px := a.data[i*c : i*c+c]
		alpha := uint16(0xffff)
		if c == 4 {
			alpha = uint16(px[3])
		}
		im.SetNRGBA64(i%w, i/w, color.NRGBA64{R: uint16(px[0]), G: uint16(px[1]), B: uint16(px[2]), A: alpha})
	}
	return im, nil
}
