package common

import (
	"encoding/binary"
	"io"
)

// Reader provides utilities for reading JPEG data
type Reader struct {
	r   io.Reader
	buf [2]byte
}

// NewReader creates a new JPEG reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadByte reads a single byte
func (r *Reader) ReadByte() (byte, error) {
	_, err := io.ReadFull(r.r, r.buf[:1])
	if err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadUint16 reads a 16-bit big-endian value
func (r *Reader) ReadUint16() (uint16, error) {
	_, err := io.ReadFull(r.r, r.buf[:2])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.buf[:2]), nil
}

// ReadMarker reads the next JPEG marker, including the 0xFF prefix
func (r *Reader) ReadMarker() (uint16, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, ErrInvalidMarker
	}
	return r.markerAfterFF()
}

// markerAfterFF finishes a marker whose first 0xFF was already consumed
func (r *Reader) markerAfterFF() (uint16, error) {
	// Skip any padding 0xFF bytes
	b, err := r.ReadByte()
	for err == nil && b == 0xFF {
		b, err = r.ReadByte()
	}
	if err != nil {
		return 0, err
	}

	// 0x00 is a stuffed byte (escaped 0xFF in data), not a marker
	if b == 0x00 {
		return 0, ErrInvalidMarker
	}
	return uint16(0xFF00) | uint16(b), nil
}

// ReadSegment reads a segment with its length
// Returns the segment data (without the length field)
func (r *Reader) ReadSegment() ([]byte, error) {
	length, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	// Length includes itself (2 bytes)
	if length < 2 {
		return nil, ErrInvalidData
	}

	data := make([]byte, length-2)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadEntropySegments reads entropy-coded data up to the next marker that is
// not a restart marker. Stuffed bytes are kept; the data is split at RSTn
// markers. The terminating marker is returned, or 0 at end of input.
func (r *Reader) ReadEntropySegments() ([][]byte, uint16, error) {
	var segments [][]byte
	var cur []byte
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return append(segments, cur), 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		if b != 0xFF {
			cur = append(cur, b)
			continue
		}

		b2, err := r.ReadByte()
		if err == io.EOF {
			return append(segments, cur), 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		for b2 == 0xFF {
			if b2, err = r.ReadByte(); err != nil {
				return append(segments, cur), 0, nil
			}
		}

		marker := uint16(0xFF00) | uint16(b2)
		switch {
		case b2 == 0x00:
			cur = append(cur, 0xFF, 0x00)
		case IsRST(marker):
			segments = append(segments, cur)
			cur = nil
		default:
			return append(segments, cur), marker, nil
		}
	}
}

// Writer provides utilities for writing JPEG data
type Writer struct {
	w   io.Writer
	buf [2]byte
}

// NewWriter creates a new JPEG writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteUint16 writes a 16-bit big-endian value
func (w *Writer) WriteUint16(v uint16) error {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	_, err := w.w.Write(w.buf[:2])
	return err
}

// WriteMarker writes a JPEG marker
func (w *Writer) WriteMarker(marker uint16) error {
	return w.WriteUint16(marker)
}

// WriteSegment writes a segment with length
// The length field is automatically calculated and includes itself (2 bytes)
func (w *Writer) WriteSegment(marker uint16, data []byte) error {
	if len(data)+2 > 0xFFFF {
		return ErrBufferTooSmall
	}
	if err := w.WriteMarker(marker); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(data) + 2)); err != nil {
		return err
	}
	_, err := w.w.Write(data)
	return err
}

// WriteBytes writes raw bytes
func (w *Writer) WriteBytes(data []byte) error {
	_, err := w.w.Write(data)
	return err
}
