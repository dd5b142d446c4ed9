// Package rvf implements the RVF on-disk container format.
//
// An RVF file is a single-file container holding an ordered sequence of named
// segments. Each segment carries a metadata block of keyword/value/comment
// cards and an optional typed payload (an n-dimensional numeric array or a
// columnar table). Segment order is preserved exactly: the first segment of a
// standard product is its primary metadata block, and readers rely on that.
package rvf

// RVF global constants must never change.
const (
	// MagicRVF is the file magic for all RVF containers.
	// It is encoded as "RVF\0".
	MagicRVF = "RVF\x00"

	// Current Major Version: Any change indicates a breaking format change.
	CurrentMajor uint16 = 1

	// Current Minor Version: Versions may add new optional segment kinds.
	CurrentMinor uint16 = 0
)

const (
	rvfAlign      = 8
	rvfHeaderSize = 40
)

// Kind identifies the payload shape of a segment.
type Kind uint32

const (
	// KindMetadata segments carry a card block and no payload.
	KindMetadata Kind = 0x0001
	// KindImage segments carry an n-dimensional numeric array payload.
	KindImage Kind = 0x0002
	// KindTable segments carry a columnar table payload.
	KindTable Kind = 0x0003
)

func (k Kind) String() string {
	switch k {
	case KindMetadata:
		return "metadata"
	case KindImage:
		return "image"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// FileHeader is the fixed header at offset 0 of every RVF file.
type FileHeader struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SegmentCount     uint32
	SegmentDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

func (h *FileHeader) Valid() bool {
	if string(h.Magic[:]) != MagicRVF {
		return false
	}
	if h.HeaderSize < rvfHeaderSize {
		return false
	}
	return true
}

func (h *FileHeader) Compatible() bool {
	return h.Major == CurrentMajor
}

// Segment is one directory entry of an RVF file. Offsets are absolute.
//
// Name uniqueness is not enforced at the format level; files written by other
// tooling may legitimately contain repeated names and readers decide how to
// resolve them.
type Segment struct {
	Name        string
	Kind        Kind
	HeaderOff   uint64
	HeaderSize  uint64
	PayloadOff  uint64
	PayloadSize uint64
}
