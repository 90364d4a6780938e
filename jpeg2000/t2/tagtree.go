package t2

// TagTree codes a 2-D array of non-negative integers as a quadtree of
// minima, as used for code-block inclusion and zero bit-planes.
// ISO/IEC 15444-1 B.10.2
type TagTree struct {
	widths  []int // per level, leaves first
	heights []int
	value   [][]int
	low     [][]int
	known   [][]bool
}

// NewTagTree creates a tree with width x height leaves, every value unknown
func NewTagTree(width, height int) *TagTree {
	tt := &TagTree{}
	w, h := max(width, 1), max(height, 1)
	for {
		tt.widths = append(tt.widths, w)
		tt.heights = append(tt.heights, h)
		if w*h == 1 {
			break
		}
		w, h = (w+1)/2, (h+1)/2
	}
	tt.value = make([][]int, len(tt.widths))
	tt.low = make([][]int, len(tt.widths))
	tt.known = make([][]bool, len(tt.widths))
	for l := range tt.widths {
		n := tt.widths[l] * tt.heights[l]
		tt.value[l] = make([]int, n)
		tt.low[l] = make([]int, n)
		tt.known[l] = make([]bool, n)
	}
	tt.Reset()
	return tt
}

// unknownValue stands for a value not yet decoded, or not yet set
const unknownValue = 999

// Reset clears every value and the coding state
func (tt *TagTree) Reset() {
	for l := range tt.value {
		for i := range tt.value[l] {
			tt.value[l][i] = unknownValue
			tt.low[l][i] = 0
			tt.known[l][i] = false
		}
	}
}

// SetValue sets leaf (x, y) and lowers its ancestors to stay minima
func (tt *TagTree) SetValue(x, y, value int) {
	for l := range tt.widths {
		i := y*tt.widths[l] + x
		if l == 0 || value < tt.value[l][i] {
			tt.value[l][i] = value
		}
		x, y = x/2, y/2
	}
}

// Value returns the value of leaf (x, y)
func (tt *TagTree) Value(x, y int) int {
	return tt.value[0][y*tt.widths[0]+x]
}

// path returns the node indices from the root down to leaf (x, y)
func (tt *TagTree) path(x, y int) []int {
	idx := make([]int, len(tt.widths))
	for l := range tt.widths {
		idx[l] = y*tt.widths[l] + x
		x, y = x/2, y/2
	}
	return idx
}

// Encode writes the information needed to tell whether leaf (x, y) is below
// threshold
func (tt *TagTree) Encode(bw *bioWriter, x, y, threshold int) {
	idx := tt.path(x, y)
	low := 0
	for l := len(idx) - 1; l >= 0; l-- {
		i := idx[l]
		if low > tt.low[l][i] {
			tt.low[l][i] = low
		} else {
			low = tt.low[l][i]
		}
		for low < threshold {
			if low >= tt.value[l][i] {
				if !tt.known[l][i] {
					bw.writeBit(1)
					tt.known[l][i] = true
				}
				break
			}
			bw.writeBit(0)
			low++
		}
		tt.low[l][i] = low
	}
}

// Decode reads bits until it is known whether leaf (x, y) is below
// threshold, and reports that
func (tt *TagTree) Decode(br *bioReader, x, y, threshold int) (bool, error) {
	idx := tt.path(x, y)
	low := 0
	for l := len(idx) - 1; l >= 0; l-- {
		i := idx[l]
		if low > tt.low[l][i] {
			tt.low[l][i] = low
		} else {
			low = tt.low[l][i]
		}
		for low < threshold && low < tt.value[l][i] {
			bit, err := br.readBit()
			if err != nil {
				return false, err
			}
			if bit != 0 {
				tt.value[l][i] = low
			} else {
				low++
			}
		}
		tt.low[l][i] = low
	}
	return tt.value[0][idx[0]] < threshold, nil
}
