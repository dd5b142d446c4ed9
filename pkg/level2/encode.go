package level2

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// maxAxes is the highest axis index an image header may carry, matching the
// FITS limit of 999 axes.
const maxAxes = 999

// WriteContainer serialises a container to path. Encoding is all-or-nothing:
// segments are written to a temporary file in the same directory and renamed
// over path only after the whole container encoded successfully, so a failed
// encode never leaves a partial product behind.
//
// Encoding does not change payloads or the registry, but it synchronises the
// derived dimension cards (NAXIS, NAXISn, table row counts) on the stored
// headers immediately before emission. Populator-written values in those
// cards are always overwritten.
func WriteContainer(c *Container, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rvdata-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	w, err := rvf.NewWriter(tmp)
	if err != nil {
		cleanup()
		return err
	}
	if err := c.encodeSegments(w); err != nil {
		cleanup()
		return err
	}
	if err := w.Finalise(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// encodeSegments walks the registry in declared order and emits one or more
// segments per extension. PRIMARY is always segment 0 regardless of its
// schema position: downstream readers assume the first segment is the primary
// metadata block.
func (c *Container) encodeSegments(w *rvf.Writer) error {
	names := make([]string, 0, len(c.order))
	names = append(names, ExtNamePrimary)
	for _, name := range c.order {
		if name != ExtNamePrimary {
			names = append(names, name)
		}
	}

	for _, name := range names {
		typ, ok := c.exts[name]
		if !ok {
			continue
		}
		hdr := c.headers[name]

		switch typ {
		case ExtPrimary:
			if err := w.WriteSegment(name, rvf.KindMetadata, hdr, nil); err != nil {
				return err
			}

		case ExtSpectrum:
			sp, _ := c.payloads[name].(*SpectrumTriple)
			if sp == nil {
				sp = &SpectrumTriple{}
			}
			comps := []struct {
				suffix string
				im     *rvf.Image
			}{
				{"FLUX", sp.Flux},
				{"WAVE", sp.Wave},
				{"VAR", sp.Var},
			}
			for _, comp := range comps {
				syncImageDims(hdr, comp.im)
				data, err := rvf.EncodeImage(comp.im)
				if err != nil {
					return fmt.Errorf("level2: extension %s_%s: %w", name, comp.suffix, err)
				}
				segName := name + "_" + comp.suffix
				if err := w.WriteSegment(segName, rvf.KindImage, hdr, data); err != nil {
					return err
				}
			}

		case ExtImage:
			im, _ := c.payloads[name].(*rvf.Image)
			syncImageDims(hdr, im)
			data, err := rvf.EncodeImage(im)
			if errors.Is(err, rvf.ErrBoolArray) {
				// The image encoding has no boolean element type; widen
				// to float and retry once. The stored payload keeps its
				// boolean form.
				data, err = rvf.EncodeImage(im.WidenBool())
				if err != nil {
					return &WidenRetryError{Ext: name, Orig: rvf.ErrBoolArray, Retry: err}
				}
			} else if err != nil {
				return fmt.Errorf("level2: extension %s: %w", name, err)
			}
			if err := w.WriteSegment(name, rvf.KindImage, hdr, data); err != nil {
				return err
			}

		case ExtTable:
			tbl, _ := c.payloads[name].(*rvf.Table)
			hdr.Set("NAXIS1", int64(tbl.Rows()), "number of table rows")
			data, err := rvf.EncodeTable(tbl)
			if err != nil {
				return fmt.Errorf("level2: extension %s: %w", name, err)
			}
			if err := w.WriteSegment(name, rvf.KindTable, hdr, data); err != nil {
				return err
			}

		default:
			return &UnsupportedTypeError{Ext: name, Type: typ}
		}
	}
	return nil
}

// syncImageDims recomputes the derived dimension cards from the array's
// actual shape. An absent array is zero-dimensional with a zero size field.
// Stale higher-axis cards from an earlier, larger shape are dropped.
func syncImageDims(hdr *rvf.HeaderBlock, im *rvf.Image) {
	ndim := im.NDim()
	hdr.Set("NAXIS", int64(ndim), "number of array dimensions")
	if ndim == 0 {
		hdr.Set("NAXIS1", int64(0), "axis 1 size")
	} else {
		for d := 0; d < ndim; d++ {
			hdr.Set(fmt.Sprintf("NAXIS%d", d+1), int64(im.Dims[d]), fmt.Sprintf("axis %d size", d+1))
		}
	}
	// Stale axis cards can be non-contiguous, so sweep the full FITS axis
	// range rather than stopping at the first gap.
	for d := max(ndim, 1) + 1; d <= maxAxes; d++ {
		hdr.Del(fmt.Sprintf("NAXIS%d", d))
	}
}
