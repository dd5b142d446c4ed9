package rvf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a parsed, read-only view over an RVF container.
// Segments holds the directory in file order.
type File struct {
	Data     []byte
	Header   *FileHeader
	Segments []Segment
	mmapped  bool
}

// Open maps an RVF file read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < 0 {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)
	if size < rvfHeaderSize {
		return nil, ErrCorruptFile
	}

	// Prefer mmap where available for zero-copy payload slices.
	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		rf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return rf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates an RVF from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrCorruptFile
	}
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	if len(data) < rvfHeaderSize {
		return nil, ErrCorruptFile
	}
	hdr, ok := decodeFileHeader(data[:rvfHeaderSize])
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if uint64(hdr.HeaderSize) > uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if hdr.SegmentDirOffset < uint64(hdr.HeaderSize) || hdr.SegmentDirOffset > uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	// Decode the variable-length segment directory. A directory entry costs
	// at least 40 bytes (name length, kind, four u64 ranges), which bounds
	// the declared segment count before allocation.
	d := decbuf{b: data[hdr.SegmentDirOffset:]}
	nseg, err := d.count(uint64(hdr.SegmentCount), 40)
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, nseg)
	for i := range segments {
		s := &segments[i]
		var err error
		if s.Name, err = d.str(); err != nil {
			return nil, err
		}
		kind, err := d.u32()
		if err != nil {
			return nil, err
		}
		s.Kind = Kind(kind)
		if s.HeaderOff, err = d.u64(); err != nil {
			return nil, err
		}
		if s.HeaderSize, err = d.u64(); err != nil {
			return nil, err
		}
		if s.PayloadOff, err = d.u64(); err != nil {
			return nil, err
		}
		if s.PayloadSize, err = d.u64(); err != nil {
			return nil, err
		}
	}

	// Validate segment bounds against the data region before the directory.
	for i := range segments {
		s := &segments[i]
		if err := checkRange(s.HeaderOff, s.HeaderSize, hdr, len(data), i, "header"); err != nil {
			return nil, err
		}
		if s.PayloadSize > 0 {
			if err := checkRange(s.PayloadOff, s.PayloadSize, hdr, len(data), i, "payload"); err != nil {
				return nil, err
			}
		}
	}

	return &File{
		Data:     data,
		Header:   &hdr,
		Segments: segments,
		mmapped:  mmapped,
	}, nil
}

func checkRange(off, size uint64, hdr FileHeader, fileLen, i int, what string) error {
	end := off + size
	if end < off {
		return fmt.Errorf("%w: segment %d %s offset overflow", ErrCorruptFile, i, what)
	}
	if off < uint64(hdr.HeaderSize) {
		return fmt.Errorf("%w: segment %d %s overlaps file header", ErrCorruptFile, i, what)
	}
	if end > hdr.SegmentDirOffset || end > uint64(fileLen) {
		return fmt.Errorf("%w: segment %d %s out of bounds", ErrCorruptFile, i, what)
	}
	return nil
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	if f.Data != nil && f.mmapped {
		err := unix.Munmap(f.Data)
		f.Data = nil
		f.Header = nil
		f.Segments = nil
		f.mmapped = false
		return err
	}
	f.Data = nil
	f.Header = nil
	f.Segments = nil
	f.mmapped = false
	return nil
}

// Segment returns the last segment with the given name, or nil if absent.
// Returning the last occurrence matches decode's last-write-wins resolution
// of duplicate names.
func (f *File) Segment(name string) *Segment {
	for i := len(f.Segments) - 1; i >= 0; i-- {
		if f.Segments[i].Name == name {
			return &f.Segments[i]
		}
	}
	return nil
}

// SegmentHeader decodes the card block of a segment.
func (f *File) SegmentHeader(s *Segment) (*HeaderBlock, error) {
	if f == nil || s == nil || f.Data == nil {
		return nil, ErrCorruptFile
	}
	return DecodeHeaderBlock(f.Data[s.HeaderOff : s.HeaderOff+s.HeaderSize])
}

// SegmentData returns a zero-copy slice covering the segment payload.
// The caller must not retain this slice after File.Close().
func (f *File) SegmentData(s *Segment) []byte {
	if f == nil || s == nil || f.Data == nil || s.PayloadSize == 0 {
		return nil
	}
	start := s.PayloadOff
	end := s.PayloadOff + s.PayloadSize
	if end < start || end > uint64(len(f.Data)) {
		return nil
	}
	return f.Data[int(start):int(end)]
}
