package t1

import (
	"math/bits"

	"github.com/cocosip/go-rasterstats/jpeg2000/mqc"
)

// EncodedBlock is the Tier-1 output of one code-block
type EncodedBlock struct {
	Data         []byte
	NumBitplanes int // magnitude bit-planes, counted from the most significant non-zero one
	NumPasses    int
}

// Encoder codes code-blocks of one subband orientation
type Encoder struct {
	width, height int
	orient        int
}

// NewEncoder creates an encoder for width x height blocks of orientation
// orient (0 LL, 1 HL, 2 LH, 3 HH)
func NewEncoder(width, height, orient int) *Encoder {
	return &Encoder{width: width, height: height, orient: orient}
}

// Encode codes row-major coefficients in every bit-plane using a single
// terminated codeword
func (e *Encoder) Encode(coeffs []int32) EncodedBlock {
	s := newBlockState(e.width, e.height, e.orient)
	neg := make([]bool, len(s.flags))
	var maxMag uint32
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			v := coeffs[y*e.width+x]
			i := s.index(x, y)
			if v < 0 {
				neg[i] = true
				v = -v
			}
			s.mag[i] = uint32(v)
			maxMag = max(maxMag, uint32(v))
		}
	}
	if maxMag == 0 {
		return EncodedBlock{}
	}

	numBPS := bits.Len32(maxMag)
	mq := mqc.NewMQEncoder()
	codeSign := func(i int) {
		ctx, spb := signContext(s.flags[i])
		sign := 0
		if neg[i] {
			sign = 1
		}
		mq.Encode(sign^spb, ctx)
		s.setSignificant(i, neg[i])
	}

	for bp := numBPS - 1; bp >= 0; bp-- {
		if bp != numBPS-1 {
			e.significancePass(s, mq, bp, codeSign)
			e.refinementPass(s, mq, bp)
		}
		e.cleanupPass(s, mq, bp, codeSign)
		s.clearVisited()
	}

	return EncodedBlock{Data: mq.Flush(), NumBitplanes: numBPS, NumPasses: NumPasses(numBPS)}
}

func (e *Encoder) significancePass(s *blockState, mq *mqc.MQEncoder, bp int, codeSign func(int)) {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for y := k; y < min(k+4, e.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&T1_SIG != 0 || f&T1_SIG_NEIGHBORS == 0 {
					continue
				}
				bit := int(s.mag[i]>>bp) & 1
				mq.Encode(bit, zeroCodingContext(f, e.orient))
				s.flags[i] |= T1_VISIT
				if bit != 0 {
					codeSign(i)
				}
			}
		}
	}
}

func (e *Encoder) refinementPass(s *blockState, mq *mqc.MQEncoder, bp int) {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for y := k; y < min(k+4, e.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&T1_SIG == 0 || f&T1_VISIT != 0 {
					continue
				}
				mq.Encode(int(s.mag[i]>>bp)&1, magRefinementContext(f))
				s.flags[i] |= T1_REFINE
			}
		}
	}
}

func (e *Encoder) cleanupPass(s *blockState, mq *mqc.MQEncoder, bp int, codeSign func(int)) {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			y0 := k
			if s.runLengthEligible(x, k) {
				r := -1
				for dy := 0; dy < 4; dy++ {
					if (s.mag[s.index(x, k+dy)]>>bp)&1 != 0 {
						r = dy
						break
					}
				}
				if r < 0 {
					mq.Encode(0, mqc.CtxRL)
					continue
				}
				mq.Encode(1, mqc.CtxRL)
				mq.Encode(r>>1, mqc.CtxUNI)
				mq.Encode(r&1, mqc.CtxUNI)
				codeSign(s.index(x, k+r))
				y0 = k + r + 1
			}
			for y := y0; y < min(k+4, e.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&(T1_SIG|T1_VISIT) != 0 {
					continue
				}
				bit := int(s.mag[i]>>bp) & 1
				mq.Encode(bit, zeroCodingContext(f, e.orient))
				if bit != 0 {
					codeSign(i)
				}
			}
		}
	}
}
