package level2

import (
	"fmt"

	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/pkg/rvf"
)

// ReadContainer opens an RVF file and initialises a container from it for
// inspection. The container starts from the standard shape in defs (nil for
// the embedded defaults) and each segment is applied on top.
func ReadContainer(path string, defs *Definitions, log logger.Logger) (*Container, error) {
	f, err := rvf.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c, err := NewContainer(defs)
	if err != nil {
		return nil, err
	}
	if err := c.ReadFrom(f, log); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadFrom applies every segment of an open file to the container in one
// linear pass. Image and table segments register their name if it is not
// already known and store payload and header; metadata segments named PRIMARY
// or RECEIPT store their header only. Segments of any other shape are
// reported as a warning, their header is still recorded under their name and
// their payload is skipped.
//
// Duplicate segment names resolve last-write-wins: a later segment replaces
// whatever an earlier one stored under the same name. ReadFrom never builds a
// SpectrumTriple; recombining component image segments into spectrum
// extensions is the instrument converter's job.
func (c *Container) ReadFrom(f *rvf.File, log logger.Logger) error {
	if log == nil {
		log = logger.Default()
	}
	for i := range f.Segments {
		seg := &f.Segments[i]
		name := normExtName(seg.Name)

		hdr, err := f.SegmentHeader(seg)
		if err != nil {
			return fmt.Errorf("level2: segment %s: %w", name, err)
		}

		switch seg.Kind {
		case rvf.KindImage:
			im, err := rvf.DecodeImage(f.SegmentData(seg))
			if err != nil {
				return fmt.Errorf("level2: segment %s: %w", name, err)
			}
			c.adopt(name, ExtImage, hdr, im)

		case rvf.KindTable:
			tbl, err := rvf.DecodeTable(f.SegmentData(seg))
			if err != nil {
				return fmt.Errorf("level2: segment %s: %w", name, err)
			}
			c.adopt(name, ExtTable, hdr, tbl)

		default:
			if seg.Kind == rvf.KindMetadata && (name == ExtNamePrimary || name == ExtNameReceipt) {
				if _, ok := c.exts[name]; !ok {
					c.register(name, ExtPrimary, hdr, nil)
				} else {
					c.headers[name] = hdr
				}
				continue
			}
			log.Warn("unrecognized segment",
				"name", name,
				"kind", uint32(seg.Kind),
			)
			// Record the header anyway so nothing in the file is lost;
			// the name becomes a metadata-only extension.
			if _, ok := c.exts[name]; !ok {
				c.register(name, ExtPrimary, hdr, nil)
			} else {
				c.headers[name] = hdr
			}
		}
	}
	return nil
}

// adopt stores a decoded segment, registering the name on first sight and
// re-tagging a known name whose declared type disagrees with the incoming
// segment kind (the file is authoritative during decode).
func (c *Container) adopt(name string, typ ExtType, hdr *rvf.HeaderBlock, payload any) {
	if _, ok := c.exts[name]; !ok {
		c.register(name, typ, hdr, payload)
		return
	}
	c.exts[name] = typ
	c.headers[name] = hdr
	c.payloads[name] = payload
}
