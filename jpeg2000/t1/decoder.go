package t1

import (
	"github.com/cocosip/go-rasterstats/jpeg2000/mqc"
)

// Decoder reconstructs code-blocks of one subband orientation
type Decoder struct {
	width, height int
	orient        int
}

// NewDecoder creates a decoder for width x height blocks of orientation orient
func NewDecoder(width, height, orient int) *Decoder {
	return &Decoder{width: width, height: height, orient: orient}
}

// Decode runs numPasses coding passes over data, starting at the bit-plane
// numBitplanes-1, and returns row-major coefficients. Bit-planes that were
// not transmitted stay zero.
func (d *Decoder) Decode(data []byte, numBitplanes, numPasses int) []int32 {
	out := make([]int32, d.width*d.height)
	if numPasses <= 0 || numBitplanes <= 0 {
		return out
	}

	s := newBlockState(d.width, d.height, d.orient)
	mq := mqc.NewMQDecoder(data)
	decodeSign := func(i int) {
		ctx, spb := signContext(s.flags[i])
		s.setSignificant(i, mq.Decode(ctx)^spb != 0)
	}

	// the first pass is a cleanup pass
	pass := 2
	bp := numBitplanes - 1
	for p := 0; p < numPasses && bp >= 0; p++ {
		switch pass {
		case 0:
			d.significancePass(s, mq, bp, decodeSign)
		case 1:
			d.refinementPass(s, mq, bp)
		default:
			d.cleanupPass(s, mq, bp, decodeSign)
			s.clearVisited()
		}
		if pass == 2 {
			pass = 0
			bp--
		} else {
			pass++
		}
	}

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			i := s.index(x, y)
			v := int32(s.mag[i])
			if s.flags[i]&T1_SIGN != 0 {
				v = -v
			}
			out[y*d.width+x] = v
		}
	}
	return out
}

func (d *Decoder) significancePass(s *blockState, mq *mqc.MQDecoder, bp int, decodeSign func(int)) {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for y := k; y < min(k+4, d.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&T1_SIG != 0 || f&T1_SIG_NEIGHBORS == 0 {
					continue
				}
				bit := mq.Decode(zeroCodingContext(f, d.orient))
				s.flags[i] |= T1_VISIT
				if bit != 0 {
					s.mag[i] |= 1 << bp
					decodeSign(i)
				}
			}
		}
	}
}

func (d *Decoder) refinementPass(s *blockState, mq *mqc.MQDecoder, bp int) {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for y := k; y < min(k+4, d.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&T1_SIG == 0 || f&T1_VISIT != 0 {
					continue
				}
				if mq.Decode(magRefinementContext(f)) != 0 {
					s.mag[i] |= 1 << bp
				}
				s.flags[i] |= T1_REFINE
			}
		}
	}
}

func (d *Decoder) cleanupPass(s *blockState, mq *mqc.MQDecoder, bp int, decodeSign func(int)) {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			y0 := k
			if s.runLengthEligible(x, k) {
				if mq.Decode(mqc.CtxRL) == 0 {
					continue
				}
				r := mq.Decode(mqc.CtxUNI) << 1
				r |= mq.Decode(mqc.CtxUNI)
				i := s.index(x, k+r)
				s.mag[i] |= 1 << bp
				decodeSign(i)
				y0 = k + r + 1
			}
			for y := y0; y < min(k+4, d.height); y++ {
				i := s.index(x, y)
				f := s.flags[i]
				if f&(T1_SIG|T1_VISIT) != 0 {
					continue
				}
				if mq.Decode(zeroCodingContext(f, d.orient)) != 0 {
					s.mag[i] |= 1 << bp
					decodeSign(i)
				}
			}
		}
	}
}
