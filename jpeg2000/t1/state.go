// Package t1 implements EBCOT Tier-1 coding of JPEG 2000 code-blocks:
// bit-plane significance propagation, magnitude refinement and cleanup
// passes driven by the MQ coder.
//
// Reference: ISO/IEC 15444-1:2019 Annex D
package t1

// blockState holds the flags of a code-block padded by one sample on every
// side, so neighbour updates never need bounds checks
type blockState struct {
	width, height int
	orient        int
	stride        int
	flags         []uint32
	mag           []uint32
}

func newBlockState(width, height, orient int) *blockState {
	stride := width + 2
	n := stride * (height + 2)
	return &blockState{
		width:  width,
		height: height,
		orient: orient,
		stride: stride,
		flags:  make([]uint32, n),
		mag:    make([]uint32, n),
	}
}

func (s *blockState) index(x, y int) int {
	return (y+1)*s.stride + x + 1
}

// setSignificant marks the coefficient at i significant and publishes its
// significance and sign to the eight neighbours
func (s *blockState) setSignificant(i int, negative bool) {
	f := s.flags
	n := i - s.stride
	so := i + s.stride

	f[i] |= T1_SIG
	f[n] |= T1_SIG_S
	f[so] |= T1_SIG_N
	f[i-1] |= T1_SIG_E
	f[i+1] |= T1_SIG_W
	f[n-1] |= T1_SIG_SE
	f[n+1] |= T1_SIG_SW
	f[so-1] |= T1_SIG_NE
	f[so+1] |= T1_SIG_NW

	if negative {
		f[i] |= T1_SIGN
		f[n] |= T1_SIGN_S
		f[so] |= T1_SIGN_N
		f[i-1] |= T1_SIGN_E
		f[i+1] |= T1_SIGN_W
	}
}

func (s *blockState) clearVisited() {
	for i := range s.flags {
		s.flags[i] &^= T1_VISIT
	}
}

// runLengthEligible reports whether the full stripe column starting at
// (x, y) has no significant, visited, or significant-neighbour samples
func (s *blockState) runLengthEligible(x, y int) bool {
	if y+3 >= s.height {
		return false
	}
	for dy := 0; dy < 4; dy++ {
		if s.flags[s.index(x, y+dy)]&(T1_SIG|T1_VISIT|T1_SIG_NEIGHBORS) != 0 {
			return false
		}
	}
	return true
}

// NumPasses returns the number of coding passes for a block whose largest
// magnitude needs numBitplanes bits
func NumPasses(numBitplanes int) int {
	if numBitplanes <= 0 {
		return 0
	}
	return 3*numBitplanes - 2
}
