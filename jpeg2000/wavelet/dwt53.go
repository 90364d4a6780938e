// Package wavelet implements the reversible 5/3 discrete wavelet transform.
//
// Reference: ISO/IEC 15444-1:2019 Annex F
package wavelet

// Forward53_1D performs the forward 5/3 lifting transform in place.
// Output: first (n+1)/2 low-pass samples, then n/2 high-pass samples.
func Forward53_1D(data []int32) {
	n := len(data)
	if n <= 1 {
		return
	}
	nL := (n + 1) / 2
	nH := n / 2
	temp := make([]int32, n)

	// predict: H[i] = X[2i+1] - floor((X[2i] + X[2i+2]) / 2)
	for i := 0; i < nH; i++ {
		left := data[2*i]
		right := left
		if 2*i+2 < n {
			right = data[2*i+2]
		}
		temp[nL+i] = data[2*i+1] - ((left + right) >> 1)
	}

	// update: L[i] = X[2i] + floor((H[i-1] + H[i] + 2) / 4)
	for i := 0; i < nL; i++ {
		left, right := highAt(temp[nL:], i-1), highAt(temp[nL:], i)
		temp[i] = data[2*i] + ((left + right + 2) >> 2)
	}
	copy(data, temp)
}

// Inverse53_1D reverses Forward53_1D in place
func Inverse53_1D(data []int32) {
	n := len(data)
	if n <= 1 {
		return
	}
	nL := (n + 1) / 2
	nH := n / 2
	high := data[nL:]
	temp := make([]int32, n)

	for i := 0; i < nL; i++ {
		temp[2*i] = data[i] - ((highAt(high, i-1) + highAt(high, i) + 2) >> 2)
	}
	for i := 0; i < nH; i++ {
		left := temp[2*i]
		right := left
		if 2*i+2 < n {
			right = temp[2*i+2]
		}
		temp[2*i+1] = high[i] + ((left + right) >> 1)
	}
	copy(data, temp)
}

// highAt reads a high-pass coefficient with symmetric extension
func highAt(high []int32, i int) int32 {
	if i < 0 {
		i = -i - 1
	}
	if i >= len(high) {
		i = 2*len(high) - 1 - i
	}
	return high[i]
}

// Forward53_2D transforms the width x height region at the top-left of a
// buffer with row stride stride: rows first, then columns
func Forward53_2D(data []int32, width, height, stride int) {
	row := make([]int32, width)
	for y := 0; y < height; y++ {
		copy(row, data[y*stride:y*stride+width])
		Forward53_1D(row)
		copy(data[y*stride:], row)
	}
	col := make([]int32, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*stride+x]
		}
		Forward53_1D(col)
		for y := 0; y < height; y++ {
			data[y*stride+x] = col[y]
		}
	}
}

// Inverse53_2D reverses Forward53_2D: columns first, then rows
func Inverse53_2D(data []int32, width, height, stride int) {
	col := make([]int32, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*stride+x]
		}
		Inverse53_1D(col)
		for y := 0; y < height; y++ {
			data[y*stride+x] = col[y]
		}
	}
	row := make([]int32, width)
	for y := 0; y < height; y++ {
		copy(row, data[y*stride:y*stride+width])
		Inverse53_1D(row)
		copy(data[y*stride:], row)
	}
}

// ForwardMultilevel applies levels decompositions, each on the low-pass
// quadrant of the previous one
func ForwardMultilevel(data []int32, width, height, levels int) {
	w, h := width, height
	for l := 0; l < levels; l++ {
		Forward53_2D(data, w, h, width)
		w, h = (w+1)/2, (h+1)/2
	}
}

// InverseMultilevel reverses ForwardMultilevel
func InverseMultilevel(data []int32, width, height, levels int) {
	dims := make([][2]int, levels)
	w, h := width, height
	for l := 0; l < levels; l++ {
		dims[l] = [2]int{w, h}
		w, h = (w+1)/2, (h+1)/2
	}
	for l := levels - 1; l >= 0; l-- {
		Inverse53_2D(data, dims[l][0], dims[l][1], width)
	}
}
