// Package level2 implements the standard Level 2 radial-velocity data
// container: a registry of named, typed extensions, each carrying its own
// header metadata and an optional payload, together with its mapping onto the
// RVF segment format.
//
// A Container is populated by an instrument-specific converter through the
// mutation interface (CreateExtension, DelExtension, SetData, SetHeader) and
// is then written out with WriteContainer. ReadContainer builds a Container
// back from an existing file for inspection.
package level2

import (
	"fmt"
	"strings"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// ExtType is the declared type tag of an extension. Encode dispatches on this
// tag only, never on the runtime shape of the payload.
type ExtType uint32

const (
	// ExtPrimary is the primary metadata extension: header only, never a
	// payload.
	ExtPrimary ExtType = iota + 1
	// ExtImage extensions hold one n-dimensional numeric array.
	ExtImage
	// ExtTable extensions hold one columnar table.
	ExtTable
	// ExtSpectrum extensions hold a flux/wavelength/variance triple under
	// a single shared header.
	ExtSpectrum
)

func (t ExtType) String() string {
	switch t {
	case ExtPrimary:
		return "primary"
	case ExtImage:
		return "image"
	case ExtTable:
		return "table"
	case ExtSpectrum:
		return "spectrum"
	default:
		return fmt.Sprintf("exttype(%d)", uint32(t))
	}
}

// ParseExtType parses the schema-table spelling of an extension type.
func ParseExtType(s string) (ExtType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return ExtPrimary, nil
	case "image":
		return ExtImage, nil
	case "table":
		return ExtTable, nil
	case "spectrum":
		return ExtSpectrum, nil
	default:
		return 0, fmt.Errorf("level2: unknown extension type %q", s)
	}
}

// Reserved extension names.
const (
	ExtNamePrimary = "PRIMARY"
	ExtNameReceipt = "RECEIPT"
	ExtNameConfig  = "CONFIG"
)

// Level is the data-product stage this model implements.
const Level = 2

// Container is the in-memory Level 2 data product. Extension names are
// unique and case-normalised to upper case. Every registered extension has
// exactly one header; a missing payload means the extension has not been
// populated yet.
//
// A Container is not safe for concurrent mutation: it is owned by a single
// populator. Batch conversion parallelism belongs at file granularity.
type Container struct {
	level    int
	schema   []SchemaEntry
	order    []string
	exts     map[string]ExtType
	headers  map[string]*rvf.HeaderBlock
	payloads map[string]any
}

// NewContainer builds an empty container shaped by the given definitions:
// all schema extensions are registered with an empty header and an empty
// typed placeholder payload, except PRIMARY (whose header is seeded from the
// keyword definition table and which never carries a payload) and the
// administrative RECEIPT and CONFIG tables.
func NewContainer(defs *Definitions) (*Container, error) {
	if defs == nil {
		defs = DefaultDefinitions()
	}
	c := &Container{
		level:    Level,
		schema:   append([]SchemaEntry(nil), defs.Schema...),
		exts:     make(map[string]ExtType),
		headers:  make(map[string]*rvf.HeaderBlock),
		payloads: make(map[string]any),
	}

	for _, entry := range defs.Schema {
		name := normExtName(entry.Name)
		switch name {
		case ExtNamePrimary:
			c.register(name, ExtPrimary, seedPrimaryHeader(defs.PrimaryKeywords), nil)
		case ExtNameReceipt:
			c.register(name, ExtTable, rvf.NewHeaderBlock(), newReceiptTable())
		case ExtNameConfig:
			c.register(name, ExtTable, rvf.NewHeaderBlock(), rvf.NewTable())
		default:
			c.register(name, entry.Type, rvf.NewHeaderBlock(), placeholderPayload(entry.Type))
		}
	}
	if _, ok := c.exts[ExtNamePrimary]; !ok {
		c.register(ExtNamePrimary, ExtPrimary, seedPrimaryHeader(defs.PrimaryKeywords), nil)
	}
	return c, nil
}

// register inserts without duplicate checking; callers hold the invariant.
func (c *Container) register(name string, typ ExtType, hdr *rvf.HeaderBlock, payload any) {
	c.order = append(c.order, name)
	c.exts[name] = typ
	c.headers[name] = hdr
	if payload != nil {
		c.payloads[name] = payload
	}
}

func placeholderPayload(typ ExtType) any {
	switch typ {
	case ExtImage:
		return &rvf.Image{DType: rvf.DTypeFloat64}
	case ExtTable:
		return rvf.NewTable()
	case ExtSpectrum:
		return &SpectrumTriple{}
	default:
		return nil
	}
}

func seedPrimaryHeader(defs []KeywordDef) *rvf.HeaderBlock {
	h := rvf.NewHeaderBlock()
	for _, kw := range defs {
		if kw.Keyword == "" {
			continue
		}
		var value any
		if kw.HasValue {
			value = toASCIISafe(kw.Value)
		}
		h.Set(kw.Keyword, value, toASCIISafe(kw.Description))
	}
	return h
}

// Level returns the data-product stage tag. It is fixed at construction.
func (c *Container) Level() int { return c.level }

// Extensions returns the registered extension names in registry order.
func (c *Container) Extensions() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// TypeOf returns the declared type of an extension.
func (c *Container) TypeOf(name string) (ExtType, bool) {
	t, ok := c.exts[normExtName(name)]
	return t, ok
}

// CreateExtension registers a new extension with an empty header and a
// type-default payload.
func (c *Container) CreateExtension(name string, typ ExtType) error {
	name = normExtName(name)
	if _, ok := c.exts[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, name)
	}
	c.register(name, typ, rvf.NewHeaderBlock(), placeholderPayload(typ))
	return nil
}

// DelExtension removes an extension and everything registered under its name.
func (c *Container) DelExtension(name string) error {
	name = normExtName(name)
	if _, ok := c.exts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	delete(c.exts, name)
	delete(c.headers, name)
	delete(c.payloads, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetData replaces an extension's payload. The payload variant must match the
// extension's declared type: *rvf.Image for image extensions, *rvf.Table for
// table extensions and *SpectrumTriple for spectrum extensions. Spectrum
// payloads must be internally consistent. Primary extensions never carry a
// payload.
func (c *Container) SetData(name string, data any) error {
	name = normExtName(name)
	typ, ok := c.exts[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	switch typ {
	case ExtImage:
		im, ok := data.(*rvf.Image)
		if !ok {
			return fmt.Errorf("%w: extension %s is an image, got %T", ErrTypeMismatch, name, data)
		}
		if err := im.Validate(); err != nil {
			return err
		}
		c.payloads[name] = im
	case ExtTable:
		tbl, ok := data.(*rvf.Table)
		if !ok {
			return fmt.Errorf("%w: extension %s is a table, got %T", ErrTypeMismatch, name, data)
		}
		if err := tbl.Validate(); err != nil {
			return err
		}
		c.payloads[name] = tbl
	case ExtSpectrum:
		sp, ok := data.(*SpectrumTriple)
		if !ok {
			return fmt.Errorf("%w: extension %s is a spectrum, got %T", ErrTypeMismatch, name, data)
		}
		if err := sp.Validate(); err != nil {
			return err
		}
		c.payloads[name] = sp
	default:
		return fmt.Errorf("%w: extension %s carries no payload", ErrTypeMismatch, name)
	}
	return nil
}

// SetHeader replaces an extension's header block. A nil header resets it to
// empty.
func (c *Container) SetHeader(name string, hdr *rvf.HeaderBlock) error {
	name = normExtName(name)
	if _, ok := c.exts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	if hdr == nil {
		hdr = rvf.NewHeaderBlock()
	}
	c.headers[name] = hdr
	return nil
}

// Data returns an extension's payload, or false if the extension does not
// exist or has not been populated.
func (c *Container) Data(name string) (any, bool) {
	v, ok := c.payloads[normExtName(name)]
	return v, ok
}

// ImageData returns the image payload of an image extension.
func (c *Container) ImageData(name string) (*rvf.Image, error) {
	v, ok := c.Data(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, normExtName(name))
	}
	im, ok := v.(*rvf.Image)
	if !ok {
		return nil, fmt.Errorf("%w: extension %s holds %T", ErrTypeMismatch, normExtName(name), v)
	}
	return im, nil
}

// TableData returns the table payload of a table extension.
func (c *Container) TableData(name string) (*rvf.Table, error) {
	v, ok := c.Data(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, normExtName(name))
	}
	tbl, ok := v.(*rvf.Table)
	if !ok {
		return nil, fmt.Errorf("%w: extension %s holds %T", ErrTypeMismatch, normExtName(name), v)
	}
	return tbl, nil
}

// Spectrum returns the triple payload of a spectrum extension.
func (c *Container) Spectrum(name string) (*SpectrumTriple, error) {
	v, ok := c.Data(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, normExtName(name))
	}
	sp, ok := v.(*SpectrumTriple)
	if !ok {
		return nil, fmt.Errorf("%w: extension %s holds %T", ErrTypeMismatch, normExtName(name), v)
	}
	return sp, nil
}

// Header returns an extension's header block. The returned block is the live
// header, not a copy.
func (c *Container) Header(name string) (*rvf.HeaderBlock, bool) {
	h, ok := c.headers[normExtName(name)]
	return h, ok
}

func normExtName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
