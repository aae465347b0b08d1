package rosmsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when a payload ends before the message does.
var ErrTruncated = errors.New("cdr payload truncated")

const encapsulationLen = 4

// Encapsulation identifiers (first two bytes of every CDR payload).
const (
	cdrBE = 0x0000
	cdrLE = 0x0001
)

// maxSequenceLen caps sequence lengths read from the wire.
const maxSequenceLen = 1 << 20

type encoder struct {
	buf []byte
}

func newEncoder(capacity int) *encoder {
	buf := make([]byte, encapsulationLen, encapsulationLen+capacity)
	binary.BigEndian.PutUint16(buf, cdrLE)
	return &encoder{buf: buf}
}

// align pads relative to the start of the body, after the encapsulation header.
func (e *encoder) align(n int) {
	for (len(e.buf)-encapsulationLen)%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) uint32(v uint32) {
	e.align(4)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *encoder) int32(v int32) { e.uint32(uint32(v)) }

func (e *encoder) float32(v float32) { e.uint32(math.Float32bits(v)) }

func (e *encoder) float64(v float64) {
	e.align(8)
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

func (e *encoder) string(s string) {
	e.uint32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

func (e *encoder) bytes() []byte { return e.buf }

type decoder struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func newDecoder(data []byte) (*decoder, error) {
	if len(data) < encapsulationLen {
		return nil, ErrTruncated
	}
	d := &decoder{buf: data, pos: encapsulationLen}
	switch binary.BigEndian.Uint16(data) {
	case cdrLE:
		d.order = binary.LittleEndian
	case cdrBE:
		d.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("unsupported cdr encapsulation 0x%04x", binary.BigEndian.Uint16(data))
	}
	return d, nil
}

func (d *decoder) align(n int) {
	if rem := (d.pos - encapsulationLen) % n; rem != 0 {
		d.pos += n - rem
	}
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint32() (uint32, error) {
	d.align(4)
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *decoder) int32() (int32, error) {
	v, err := d.uint32()
	return int32(v), err
}

func (d *decoder) float32() (float32, error) {
	v, err := d.uint32()
	return math.Float32frombits(v), err
}

func (d *decoder) float64() (float64, error) {
	d.align(8)
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(d.order.Uint64(b)), nil
}

func (d *decoder) string() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	// Drop the terminating NUL.
	return string(b[:len(b)-1]), nil
}

func (d *decoder) sequenceLen() (int, error) {
	n, err := d.uint32()
	if err != nil {
		return 0, err
	}
	if n > maxSequenceLen {
		return 0, fmt.Errorf("cdr sequence length %d exceeds limit", n)
	}
	return int(n), nil
}
