package instruments

import (
	"fmt"

	"github.com/eprvstd/rvdata/pkg/level2"
	"github.com/eprvstd/rvdata/pkg/rvf"
)

// ConvertSlicedFiber splits one fiber's extracted 2D spectrum into
// per-slice traces and stores them on the container. Slice s of an order
// occupies rows r with r % sliceCount == s. The raw product carries the
// fiber as S2D_FLUX_<F>, S2D_WAVE_<F>, S2D_VAR_<F> and BLAZE_<F> segments.
func ConvertSlicedFiber(c *level2.Container, f *rvf.File, fiber string, traceStart, sliceCount int) error {
	flux, fluxHdr, err := ReadImage(f, "S2D_FLUX_"+fiber)
	if err != nil {
		return err
	}
	wave, _, err := ReadImage(f, "S2D_WAVE_"+fiber)
	if err != nil {
		return err
	}
	variance, _, err := ReadImage(f, "S2D_VAR_"+fiber)
	if err != nil {
		return err
	}
	blaze, blazeHdr, err := ReadImage(f, "BLAZE_"+fiber)
	if err != nil {
		return err
	}

	for s := 0; s < sliceCount; s++ {
		trace := fmt.Sprintf("TRACE%d", traceStart+s)

		sf, err := sliceRows(flux, s, sliceCount)
		if err != nil {
			return fmt.Errorf("instruments: %s flux: %w", trace, err)
		}
		sw, err := sliceRows(wave, s, sliceCount)
		if err != nil {
			return fmt.Errorf("instruments: %s wave: %w", trace, err)
		}
		sv, err := sliceRows(variance, s, sliceCount)
		if err != nil {
			return fmt.Errorf("instruments: %s var: %w", trace, err)
		}
		sb, err := sliceRows(blaze, s, sliceCount)
		if err != nil {
			return fmt.Errorf("instruments: %s blaze: %w", trace, err)
		}

		if _, ok := c.TypeOf(trace); !ok {
			if err := c.CreateExtension(trace, level2.ExtSpectrum); err != nil {
				return err
			}
		}
		if err := c.SetData(trace, &level2.SpectrumTriple{Flux: sf, Wave: sw, Var: sv}); err != nil {
			return err
		}
		if err := c.SetHeader(trace, fluxHdr.Clone()); err != nil {
			return err
		}

		blazeName := trace + "_BLAZE"
		if _, ok := c.TypeOf(blazeName); !ok {
			if err := c.CreateExtension(blazeName, level2.ExtImage); err != nil {
				return err
			}
		}
		if err := c.SetData(blazeName, sb); err != nil {
			return err
		}
		if err := c.SetHeader(blazeName, blazeHdr.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// sliceRows extracts every sliceCount-th row of a 2D image starting at
// offset. A single-slice instrument passes through unchanged.
func sliceRows(im *rvf.Image, offset, sliceCount int) (*rvf.Image, error) {
	if sliceCount == 1 {
		return im, nil
	}
	if im.NDim() != 2 {
		return nil, fmt.Errorf("expected 2 dims, got %d", im.NDim())
	}
	data, ok := im.Data.([]float64)
	if !ok {
		return nil, fmt.Errorf("expected float64 image, got %T", im.Data)
	}
	rows, cols := im.Dims[0], im.Dims[1]
	if rows%sliceCount != 0 {
		return nil, fmt.Errorf("%d rows not divisible by %d slices", rows, sliceCount)
	}
	out := make([]float64, 0, rows/sliceCount*cols)
	for r := offset; r < rows; r += sliceCount {
		out = append(out, data[r*cols:(r+1)*cols]...)
	}
	return rvf.Float64Image([]int{rows / sliceCount, cols}, out), nil
}
