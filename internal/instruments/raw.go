package instruments

import (
	"fmt"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// ReadImage decodes a named image segment and its header from a raw product.
func ReadImage(f *rvf.File, name string) (*rvf.Image, *rvf.HeaderBlock, error) {
	seg := f.Segment(name)
	if seg == nil {
		return nil, nil, fmt.Errorf("instruments: raw product has no segment %q", name)
	}
	if seg.Kind != rvf.KindImage {
		return nil, nil, fmt.Errorf("instruments: segment %q is %s, expected image", name, seg.Kind)
	}
	im, err := rvf.DecodeImage(f.SegmentData(seg))
	if err != nil {
		return nil, nil, fmt.Errorf("instruments: segment %q: %w", name, err)
	}
	hdr, err := f.SegmentHeader(seg)
	if err != nil {
		return nil, nil, fmt.Errorf("instruments: segment %q: %w", name, err)
	}
	return im, hdr, nil
}

// ReadTable decodes a named table segment and its header from a raw product.
func ReadTable(f *rvf.File, name string) (*rvf.Table, *rvf.HeaderBlock, error) {
	seg := f.Segment(name)
	if seg == nil {
		return nil, nil, fmt.Errorf("instruments: raw product has no segment %q", name)
	}
	if seg.Kind != rvf.KindTable {
		return nil, nil, fmt.Errorf("instruments: segment %q is %s, expected table", name, seg.Kind)
	}
	tbl, err := rvf.DecodeTable(f.SegmentData(seg))
	if err != nil {
		return nil, nil, fmt.Errorf("instruments: segment %q: %w", name, err)
	}
	hdr, err := f.SegmentHeader(seg)
	if err != nil {
		return nil, nil, fmt.Errorf("instruments: segment %q: %w", name, err)
	}
	return tbl, hdr, nil
}

// PrimaryHeader returns the card block of a raw product's primary segment.
func PrimaryHeader(f *rvf.File) (*rvf.HeaderBlock, error) {
	seg := f.Segment("PRIMARY")
	if seg == nil {
		return nil, fmt.Errorf("instruments: raw product has no PRIMARY segment")
	}
	return f.SegmentHeader(seg)
}

// CopyKeyword copies one card from src to dst if it exists.
func CopyKeyword(dst, src *rvf.HeaderBlock, keyword string) {
	if card, ok := src.Card(keyword); ok {
		dst.Set(card.Keyword, card.Value, card.Comment)
	}
}

// FloatKeyword reads a numeric keyword as float64.
func FloatKeyword(hdr *rvf.HeaderBlock, keyword string) (float64, error) {
	v, ok := hdr.Get(keyword)
	if !ok {
		return 0, fmt.Errorf("instruments: missing keyword %s", keyword)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("instruments: keyword %s is %T, expected numeric", keyword, v)
	}
}
