package rvf

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
)

const writerPadBufSize = 4096

// Writer builds an RVF file segment by segment.
//
// The writer reserves space for the fixed header up-front and patches it
// during Finalise. Segments are written strictly in call order and the
// directory preserves that order; the first segment written becomes segment 0
// of the file.
type Writer struct {
	f        *os.File
	segments []Segment
	closed   bool
	flags    uint64

	padBuf []byte

	mu sync.Mutex
}

// NewWriter creates a new RVF writer targeting the given file.
// It truncates the file and reserves space for the header.
func NewWriter(f *os.File) (*Writer, error) {
	if f == nil {
		return nil, errors.New("rvf: nil file")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{
		f:      f,
		padBuf: make([]byte, writerPadBufSize),
	}

	// Reserve fixed header bytes (actual bytes, not a seek hole).
	if err := w.writeZeros(rvfHeaderSize); err != nil {
		return nil, err
	}
	if err := w.alignTo(rvfAlign); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteSegment appends one segment: its encoded card block and an optional
// payload. A nil header writes an empty card block. Passing an empty name is
// an error; duplicate names are not rejected here, name resolution is a
// reader-level concern.
func (w *Writer) WriteSegment(name string, kind Kind, hdr *HeaderBlock, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("rvf: writer already finalised")
	}
	if name == "" {
		return errors.New("rvf: empty segment name")
	}

	seg := Segment{Name: name, Kind: kind}

	if err := w.alignTo(rvfAlign); err != nil {
		return err
	}
	off, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	hdrBytes := EncodeHeaderBlock(hdr)
	if err := writeFull(w.f, hdrBytes); err != nil {
		return err
	}
	seg.HeaderOff = uint64(off)
	seg.HeaderSize = uint64(len(hdrBytes))

	if len(payload) > 0 {
		if err := w.alignTo(rvfAlign); err != nil {
			return err
		}
		off, err = w.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		if err := writeFull(w.f, payload); err != nil {
			return err
		}
		seg.PayloadOff = uint64(off)
		seg.PayloadSize = uint64(len(payload))
	}

	w.segments = append(w.segments, seg)
	return nil
}

func (w *Writer) AddFlags(flags uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("rvf: writer already finalised")
	}
	w.flags |= flags
	return nil
}

// Finalise writes the segment directory and patches the header.
// After Finalise, the writer must not be used again.
func (w *Writer) Finalise() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("rvf: writer already finalised")
	}
	w.closed = true

	// Directory order is emission order. Never sort: segment 0 is
	// semantically load-bearing for standard products.
	if err := w.alignTo(rvfAlign); err != nil {
		return err
	}
	dirOffset, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	var e encbuf
	for i := range w.segments {
		s := &w.segments[i]
		e.putString(s.Name)
		e.putU32(uint32(s.Kind))
		e.putU64(s.HeaderOff)
		e.putU64(s.HeaderSize)
		e.putU64(s.PayloadOff)
		e.putU64(s.PayloadSize)
	}
	if err := writeFull(w.f, e.bytes()); err != nil {
		return err
	}

	// Compute final file size and truncate to it (critical if the target
	// file was reused).
	fileSize, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	var header FileHeader
	copy(header.Magic[:], MagicRVF)
	header.Major = CurrentMajor
	header.Minor = CurrentMinor
	header.HeaderSize = rvfHeaderSize
	header.SegmentCount = uint32(len(w.segments))
	header.SegmentDirOffset = uint64(dirOffset)
	header.FileSize = uint64(fileSize)
	header.Flags = w.flags

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := writeFull(w.f, encodeFileHeader(header)); err != nil {
		return err
	}
	return w.f.Sync()
}

func encodeFileHeader(h FileHeader) []byte {
	buf := make([]byte, rvfHeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Major)
	binary.LittleEndian.PutUint16(buf[6:8], h.Minor)
	binary.LittleEndian.PutUint32(buf[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.SegmentCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.SegmentDirOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.FileSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.Flags)
	return buf
}

func decodeFileHeader(buf []byte) (FileHeader, bool) {
	var h FileHeader
	if len(buf) < rvfHeaderSize {
		return h, false
	}
	copy(h.Magic[:], buf[0:4])
	h.Major = binary.LittleEndian.Uint16(buf[4:6])
	h.Minor = binary.LittleEndian.Uint16(buf[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[8:12])
	h.SegmentCount = binary.LittleEndian.Uint32(buf[12:16])
	h.SegmentDirOffset = binary.LittleEndian.Uint64(buf[16:24])
	h.FileSize = binary.LittleEndian.Uint64(buf[24:32])
	h.Flags = binary.LittleEndian.Uint64(buf[32:40])
	return h, true
}

func (w *Writer) alignTo(n int64) error {
	if n <= 1 {
		return nil
	}
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	mod := pos % n
	if mod == 0 {
		return nil
	}
	return w.writeZeros(int(n - mod))
}

func (w *Writer) writeZeros(n int) error {
	if n <= 0 {
		return nil
	}
	buf := w.padBuf
	if len(buf) == 0 {
		buf = make([]byte, 4096)
	}
	for n > 0 {
		toWrite := min(n, len(buf))
		if err := writeFull(w.f, buf[:toWrite]); err != nil {
			return err
		}
		n -= toWrite
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
