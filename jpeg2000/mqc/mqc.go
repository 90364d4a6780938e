// Package mqc implements the MQ arithmetic coder used by JPEG 2000 Tier-1.
//
// Reference: ISO/IEC 15444-1:2019 Annex C
package mqc

// MQDecoder implements the MQ arithmetic decoder
type MQDecoder struct {
	data     []byte
	pos      int
	lastByte byte

	a  uint32
	c  uint32
	ct int

	contexts []context
}

// NewMQDecoder creates a decoder over one code-block segment
func NewMQDecoder(data []byte) *MQDecoder {
	// 0xFF 0xFF acts as an artificial marker that stops bytein
	buf := make([]byte, len(data)+2)
	copy(buf, data)
	buf[len(data)] = 0xFF
	buf[len(data)+1] = 0xFF

	d := &MQDecoder{data: buf, contexts: initialContexts()}
	d.init()
	return d
}

func (d *MQDecoder) init() {
	d.lastByte = d.data[0]
	d.c = uint32(d.lastByte) << 16
	d.pos = 1
	d.byteIn()
	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

func (d *MQDecoder) byteIn() {
	next := byte(0xFF)
	if d.pos < len(d.data) {
		next = d.data[d.pos]
	}
	if d.lastByte == 0xFF {
		if next > 0x8F {
			// marker: feed 1 bits without advancing
			d.c += 0xFF00
			d.ct = 8
			return
		}
		d.lastByte = next
		d.pos++
		d.c += uint32(next) << 9
		d.ct = 7
		return
	}
	d.lastByte = next
	d.pos++
	d.c += uint32(next) << 8
	d.ct = 8
}

func (d *MQDecoder) renorm() {
	for d.a < 0x8000 {
		if d.ct == 0 {
			d.byteIn()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
	}
}

// Decode returns the next binary decision in context ctx
func (d *MQDecoder) Decode(ctx int) int {
	cx := &d.contexts[ctx]
	st := cx.state()
	mps := cx.mps()
	qe := qeTable[st]

	d.a -= qe
	var bit uint8
	if d.c>>16 < qe {
		// LPS exchange
		if d.a < qe {
			bit = mps
			*cx = newContext(nmpsTable[st], mps)
		} else {
			bit = 1 - mps
			*cx = newContext(nlpsTable[st], mps^switchTable[st])
		}
		d.a = qe
		d.renorm()
		return int(bit)
	}

	d.c -= qe << 16
	if d.a&0x8000 != 0 {
		return int(mps)
	}
	// MPS exchange
	if d.a < qe {
		bit = 1 - mps
		*cx = newContext(nlpsTable[st], mps^switchTable[st])
	} else {
		bit = mps
		*cx = newContext(nmpsTable[st], mps)
	}
	d.renorm()
	return int(bit)
}
