package harps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eprvstd/rvdata/internal/instruments"
	"github.com/eprvstd/rvdata/pkg/level2"
	"github.com/eprvstd/rvdata/pkg/rvf"
)

// writeRawFixture synthesizes a sky-simultaneous DRS product: both fibers
// with 4x3 extracted spectra (two orders, two slices) plus a drift map.
func writeRawFixture(t *testing.T, dir string, primary func(*rvf.HeaderBlock)) string {
	t.Helper()

	path := filepath.Join(dir, "harps_fixture.rvf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := rvf.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}

	phdr := rvf.NewHeaderBlock()
	phdr.Set("HIERARCH ESO DPR CATG", "SCIENCE", "")
	phdr.Set("HIERARCH ESO DPR TYPE", "OBJECT,SKY", "")
	phdr.Set("HIERARCH ESO OBS TARG NAME", "HD 69830", "")
	phdr.Set("OBJECT", "HD 69830", "")
	phdr.Set("DATE-OBS", "2026-01-03T05:12:44", "")
	phdr.Set("EXPTIME", 600.0, "")
	phdr.Set("HIERARCH ESO QC BERV", -3.217, "")
	phdr.Set("HIERARCH ESO QC BJD", 2460313.717, "")
	phdr.Set("HIERARCH ESO QC ORDER50 SNR", 87.4, "")
	if primary != nil {
		primary(phdr)
	}
	if err := w.WriteSegment("PRIMARY", rvf.KindMetadata, phdr, nil); err != nil {
		t.Fatal(err)
	}

	// Row r carries the value r*10+col so slice splits are checkable.
	grid := func(base float64) []float64 {
		out := make([]float64, 12)
		for r := 0; r < 4; r++ {
			for col := 0; col < 3; col++ {
				out[r*3+col] = base + float64(r)*10 + float64(col)
			}
		}
		return out
	}
	for _, fiber := range []string{"A", "B"} {
		for i, name := range []string{"S2D_FLUX_", "S2D_WAVE_", "S2D_VAR_", "BLAZE_"} {
			im := rvf.Float64Image([]int{4, 3}, grid(float64(i)*1000))
			buf, err := rvf.EncodeImage(im)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.WriteSegment(name+fiber, rvf.KindImage, nil, buf); err != nil {
				t.Fatal(err)
			}
		}
	}

	drift := rvf.Float64Image([]int{2, 3}, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	buf, err := rvf.EncodeImage(drift)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSegment("DRIFT_B", rvf.KindImage, nil, buf); err != nil {
		t.Fatal(err)
	}

	if err := w.Finalise(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertSliceSplit(t *testing.T) {
	t.Parallel()

	path := writeRawFixture(t, t.TempDir(), nil)
	c, err := Convert(path, nil, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	// Two fibers, two slices each.
	for _, trace := range []string{"TRACE1", "TRACE2", "TRACE3", "TRACE4"} {
		triple, err := c.Spectrum(trace)
		if err != nil {
			t.Fatalf("%s: %v", trace, err)
		}
		if got := triple.Shape(); len(got) != 2 || got[0] != 2 || got[1] != 3 {
			t.Fatalf("%s shape = %v, want (2, 3)", trace, got)
		}
	}

	// TRACE1 holds fiber A rows 0 and 2, TRACE2 rows 1 and 3.
	t1, err := c.Spectrum("TRACE1")
	if err != nil {
		t.Fatal(err)
	}
	if got := t1.Flux.Data.([]float64); got[0] != 0 || got[3] != 20 {
		t.Fatalf("TRACE1 flux rows = %v", got)
	}
	t2, err := c.Spectrum("TRACE2")
	if err != nil {
		t.Fatal(err)
	}
	if got := t2.Flux.Data.([]float64); got[0] != 10 || got[3] != 30 {
		t.Fatalf("TRACE2 flux rows = %v", got)
	}
}

func TestConvertDriftAndKeywords(t *testing.T) {
	t.Parallel()

	path := writeRawFixture(t, t.TempDir(), nil)
	c, err := Convert(path, nil, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	drift, err := c.ImageData("DRIFT")
	if err != nil {
		t.Fatal(err)
	}
	if drift.NDim() != 2 || drift.Dims[0] != 2 {
		t.Fatalf("drift dims = %v", drift.Dims)
	}

	hdr, _ := c.Header(level2.ExtNamePrimary)
	if v, _ := hdr.Get("INSTRMNT"); v != "HARPS" {
		t.Fatalf("INSTRMNT = %v", v)
	}
	if v, _ := hdr.Get("BERV"); v != -3.217 {
		t.Fatalf("BERV = %v", v)
	}
	if v, _ := hdr.Get("SNR50"); v != 87.4 {
		t.Fatalf("SNR50 = %v", v)
	}
}

func TestConvertRejectsNonScience(t *testing.T) {
	t.Parallel()

	path := writeRawFixture(t, t.TempDir(), func(hdr *rvf.HeaderBlock) {
		hdr.Set("HIERARCH ESO DPR CATG", "CALIB", "")
	})
	_, err := Convert(path, nil, nil)
	var pe *instruments.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want PreconditionError", err)
	}
}

func TestConvertUnknownTypeHasNoFibers(t *testing.T) {
	t.Parallel()

	path := writeRawFixture(t, t.TempDir(), func(hdr *rvf.HeaderBlock) {
		hdr.Set("HIERARCH ESO DPR TYPE", "OBJECT,EGGS", "")
	})
	if _, err := Convert(path, nil, nil); err == nil {
		t.Fatal("expected error for unconfigured observation type")
	}
}
