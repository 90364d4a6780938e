package mqc

// State transition tables for the 47 MQ-coder probability states
// Reference: ISO/IEC 15444-1:2019 Table C.2

var qeTable = [47]uint32{
	0x5601, 0x3401, 0x1801, 0x0AC1, 0x0521, 0x0221, 0x5601, 0x5401,
	0x4801, 0x3801, 0x3001, 0x2401, 0x1C01, 0x1601, 0x5601, 0x5401,
	0x5101, 0x4801, 0x3801, 0x3401, 0x3001, 0x2801, 0x2401, 0x2201,
	0x1C01, 0x1801, 0x1601, 0x1401, 0x1201, 0x1101, 0x0AC1, 0x09C1,
	0x08A1, 0x0521, 0x0441, 0x02A1, 0x0221, 0x0141, 0x0111, 0x0085,
	0x0049, 0x0025, 0x0015, 0x0009, 0x0005, 0x0001, 0x5601,
}

var nmpsTable = [47]uint8{
	1, 2, 3, 4, 5, 38, 7, 8, 9, 10, 11, 12, 13, 29, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 45, 46,
}

var nlpsTable = [47]uint8{
	1, 6, 9, 12, 29, 33, 6, 14, 14, 14, 17, 18, 20, 21, 14, 14,
	15, 16, 17, 18, 19, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29,
	30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 46,
}

var switchTable = [47]uint8{
	1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Context labels used by the EBCOT coding passes
const (
	CtxZCStart  = 0  // zero coding, 0-8
	CtxSCStart  = 9  // sign coding, 9-13
	CtxMRStart  = 14 // magnitude refinement, 14-16
	CtxRL       = 17 // run-length
	CtxUNI      = 18 // uniform
	NumContexts = 19
)

// context packs a probability state (low 7 bits) and the MPS (bit 7)
type context uint8

func (c context) state() uint8 { return uint8(c) & 0x7F }
func (c context) mps() uint8   { return uint8(c) >> 7 }

func newContext(state, mps uint8) context { return context(state | mps<<7) }

// initialContexts returns the reset states of ISO/IEC 15444-1 Table D.7
func initialContexts() []context {
	cx := make([]context, NumContexts)
	cx[CtxZCStart] = newContext(4, 0)
	cx[CtxRL] = newContext(3, 0)
	cx[CtxUNI] = newContext(46, 0)
	return cx
}
