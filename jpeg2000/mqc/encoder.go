package mqc

// MQEncoder implements the MQ arithmetic encoder
type MQEncoder struct {
	buf []byte // buf[0] is a placeholder so the carry logic can look back
	bp  int

	a  uint32
	c  uint32
	ct int

	contexts []context
}

// NewMQEncoder creates an encoder with every context in its reset state
func NewMQEncoder() *MQEncoder {
	return &MQEncoder{
		buf:      make([]byte, 1, 256),
		a:        0x8000,
		ct:       12,
		contexts: initialContexts(),
	}
}

// Encode codes one binary decision in context ctx
func (e *MQEncoder) Encode(bit int, ctx int) {
	cx := &e.contexts[ctx]
	st := cx.state()
	mps := cx.mps()
	qe := qeTable[st]

	e.a -= qe
	if uint8(bit) == mps {
		if e.a&0x8000 != 0 {
			e.c += qe
			return
		}
		if e.a < qe {
			e.a = qe
		} else {
			e.c += qe
		}
		*cx = newContext(nmpsTable[st], mps)
		e.renorm()
		return
	}

	if e.a < qe {
		e.c += qe
	} else {
		e.a = qe
	}
	*cx = newContext(nlpsTable[st], mps^switchTable[st])
	e.renorm()
}

func (e *MQEncoder) renorm() {
	for e.a < 0x8000 {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
		}
	}
}

func (e *MQEncoder) put(v uint32) {
	if e.bp < len(e.buf) {
		e.buf[e.bp] = byte(v)
		return
	}
	e.buf = append(e.buf, byte(v))
}

func (e *MQEncoder) byteOut() {
	if e.buf[e.bp] == 0xFF {
		e.bp++
		e.put(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	if e.c&0x8000000 == 0 {
		e.bp++
		e.put(e.c >> 19)
		e.c &= 0x7FFFF
		e.ct = 8
		return
	}
	// carry into the previous byte
	e.buf[e.bp]++
	if e.buf[e.bp] == 0xFF {
		e.c &= 0x7FFFFFF
		e.bp++
		e.put(e.c >> 20)
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	e.bp++
	e.put(e.c >> 19)
	e.c &= 0x7FFFF
	e.ct = 8
}

// Flush terminates the codeword and returns the coded bytes
func (e *MQEncoder) Flush() []byte {
	// setbits
	t := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= t {
		e.c -= 0x8000
	}

	e.c <<= uint(e.ct)
	e.byteOut()
	e.c <<= uint(e.ct)
	e.byteOut()

	if e.buf[e.bp] != 0xFF {
		e.bp++
	}
	out := make([]byte, e.bp-1)
	copy(out, e.buf[1:e.bp])
	return out
}
