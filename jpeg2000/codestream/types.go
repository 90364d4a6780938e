package codestream

// Codestream is the decoded main header and the data of a single tile
type Codestream struct {
	SIZ *SIZSegment
	COD *CODSegment
	QCD *QCDSegment

	// TileData is the concatenated packet data of every tile-part
	TileData []byte
}

// SIZSegment is the image and tile size marker segment
// ISO/IEC 15444-1 A.5.1
type SIZSegment struct {
	Rsiz   uint16 // capabilities (0 = baseline)
	Xsiz   uint32 // width of the reference grid
	Ysiz   uint32 // height of the reference grid
	XOsiz  uint32
	YOsiz  uint32
	XTsiz  uint32 // tile width
	YTsiz  uint32 // tile height
	XTOsiz uint32
	YTOsiz uint32
	Csiz   uint16 // number of components

	Components []ComponentSize
}

// ComponentSize holds per-component sizing information
type ComponentSize struct {
	Ssiz  uint8 // bit 7 sign, bits 0-6 depth-1
	XRsiz uint8
	YRsiz uint8
}

// BitDepth returns the precision of the component
func (c *ComponentSize) BitDepth() int {
	return int(c.Ssiz&0x7F) + 1
}

// IsSigned reports whether the component samples are signed
func (c *ComponentSize) IsSigned() bool {
	return c.Ssiz&0x80 != 0
}

// Scod flags
const (
	ScodPrecincts = 0x01
	ScodSOP       = 0x02
	ScodEPH       = 0x04
)

// Progression orders
const (
	LRCP uint8 = iota
	RLCP
	RPCL
	PCRL
	CPRL
)

// CODSegment is the coding style default marker segment
// ISO/IEC 15444-1 A.6.1
type CODSegment struct {
	Scod uint8

	ProgressionOrder           uint8
	NumberOfLayers             uint16
	MultipleComponentTransform uint8

	NumberOfDecompositionLevels uint8
	CodeBlockWidth              uint8 // exponent, width is 2^(n+2)
	CodeBlockHeight             uint8
	CodeBlockStyle              uint8
	Transformation              uint8 // 0 = 9-7 irreversible, 1 = 5-3 reversible

	// PrecinctSizes has one entry per resolution when Scod has ScodPrecincts
	PrecinctSizes []PrecinctSize
}

// PrecinctSize holds precinct exponents for one resolution level
type PrecinctSize struct {
	PPx uint8
	PPy uint8
}

// CodeBlockSize returns the nominal code-block exponents
func (c *CODSegment) CodeBlockSize() (xcb, ycb int) {
	return int(c.CodeBlockWidth) + 2, int(c.CodeBlockHeight) + 2
}

// Precinct returns the precinct exponents of resolution r; without explicit
// sizes every precinct is 2^15 x 2^15
func (c *CODSegment) Precinct(r int) (ppx, ppy int) {
	if c.Scod&ScodPrecincts == 0 || r >= len(c.PrecinctSizes) {
		return 15, 15
	}
	return int(c.PrecinctSizes[r].PPx), int(c.PrecinctSizes[r].PPy)
}

// QCDSegment is the quantization default marker segment
// ISO/IEC 15444-1 A.6.4
type QCDSegment struct {
	Sqcd  uint8 // bits 0-4 quantization style, bits 5-7 guard bits
	SPqcd []byte
}

// QuantizationStyle returns 0 for no quantization, 1 scalar derived, 2
// scalar expounded
func (q *QCDSegment) QuantizationStyle() int {
	return int(q.Sqcd & 0x1F)
}

// GuardBits returns the number of guard bits
func (q *QCDSegment) GuardBits() int {
	return int(q.Sqcd >> 5)
}

// Exponents returns the per-subband exponents of a reversible codestream,
// in LL, HL, LH, HH order from the lowest resolution up
func (q *QCDSegment) Exponents() []int {
	exps := make([]int, len(q.SPqcd))
	for i, b := range q.SPqcd {
		exps[i] = int(b >> 3)
	}
	return exps
}

// SOTSegment is the start of tile-part marker segment
type SOTSegment struct {
	Isot  uint16
	Psot  uint32 // tile-part length from the SOT marker; 0 runs to EOC
	TPsot uint8
	TNsot uint8
}
