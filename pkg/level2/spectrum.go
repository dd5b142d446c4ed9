package level2

import (
	"fmt"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// SpectrumTriple bundles one physical spectral dataset: co-indexed flux,
// wavelength and variance arrays sharing the extension's single header.
// Variance values are stored as provided; no sign constraint is imposed.
type SpectrumTriple struct {
	Flux *rvf.Image
	Wave *rvf.Image
	Var  *rvf.Image
}

// Shape returns the outer shape shared by the three component arrays.
func (s *SpectrumTriple) Shape() []int {
	if s == nil {
		return nil
	}
	return s.Flux.Shape()
}

// Validate checks that the three components carry the same outer shape and
// are individually well formed. A fully empty triple is valid (an
// unpopulated placeholder).
func (s *SpectrumTriple) Validate() error {
	if s == nil {
		return nil
	}
	for _, comp := range []struct {
		name string
		im   *rvf.Image
	}{{"flux", s.Flux}, {"wave", s.Wave}, {"var", s.Var}} {
		if err := comp.im.Validate(); err != nil {
			return fmt.Errorf("level2: spectrum %s: %w", comp.name, err)
		}
	}
	if !shapeEqual(s.Flux.Shape(), s.Wave.Shape()) {
		return fmt.Errorf("level2: spectrum wave shape %v does not match flux shape %v",
			s.Wave.Shape(), s.Flux.Shape())
	}
	if !shapeEqual(s.Flux.Shape(), s.Var.Shape()) {
		return fmt.Errorf("level2: spectrum var shape %v does not match flux shape %v",
			s.Var.Shape(), s.Flux.Shape())
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
