package rvf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encbuf builds little-endian payload and directory blocks in memory.
type encbuf struct {
	b []byte
}

func (e *encbuf) bytes() []byte { return e.b }

func (e *encbuf) putU8(v uint8) {
	e.b = append(e.b, v)
}

func (e *encbuf) putU32(v uint32) {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
}

func (e *encbuf) putU64(v uint64) {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
}

func (e *encbuf) putI64(v int64) {
	e.putU64(uint64(v))
}

func (e *encbuf) putF32(v float32) {
	e.putU32(math.Float32bits(v))
}

func (e *encbuf) putF64(v float64) {
	e.putU64(math.Float64bits(v))
}

func (e *encbuf) putBool(v bool) {
	if v {
		e.putU8(1)
	} else {
		e.putU8(0)
	}
}

func (e *encbuf) putString(s string) {
	e.putU32(uint32(len(s)))
	e.b = append(e.b, s...)
}

// decbuf reads little-endian values out of an in-memory block with strict
// bounds checks. All errors wrap ErrCorruptFile.
type decbuf struct {
	b   []byte
	off int
}

func (d *decbuf) remaining() int { return len(d.b) - d.off }

func (d *decbuf) take(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, fmt.Errorf("%w: truncated block", ErrCorruptFile)
	}
	v := d.b[d.off : d.off+n]
	d.off += n
	return v, nil
}

// count validates a declared element count against the bytes left in the
// block before anything is allocated for it. elemSize is the minimum encoded
// size of one element, so any count the block cannot possibly hold is
// rejected as corrupt.
func (d *decbuf) count(n uint64, elemSize int) (int, error) {
	if n > uint64(d.remaining())/uint64(elemSize) {
		return 0, fmt.Errorf("%w: declared count %d exceeds block size", ErrCorruptFile, n)
	}
	return int(n), nil
}

func (d *decbuf) u8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decbuf) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decbuf) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decbuf) i64() (int64, error) {
	v, err := d.u64()
	return int64(v), err
}

func (d *decbuf) f32() (float32, error) {
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (d *decbuf) f64() (float64, error) {
	v, err := d.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (d *decbuf) bool() (bool, error) {
	v, err := d.u8()
	return v != 0, err
}

func (d *decbuf) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
