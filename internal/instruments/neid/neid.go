// Package neid converts NEID Level 1/2 raw products into the standard
// Level 2 container. Science, sky and calibration fibers are recombined into
// one spectrum triple per trace; barycentric correction and timing series
// come from indexed keywords of the raw primary header.
package neid

import (
	_ "embed"
	"fmt"
	"path/filepath"

	"github.com/eprvstd/rvdata/internal/instruments"
	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/pkg/level2"
	"github.com/eprvstd/rvdata/pkg/rvf"
)

//go:embed config.yaml
var defaultConfig []byte

// NEID echelle orders covered by the barycentric keyword series. Keyword
// indices count down from the reddest order.
const (
	numOrders   = 122
	topOrderIdx = 173
)

func init() {
	instruments.Register("neid", Convert)
}

// Convert reads a NEID raw product and populates a standard container.
func Convert(rawPath string, defs *level2.Definitions, log logger.Logger) (*level2.Container, error) {
	if log == nil {
		log = logger.Default()
	}
	rules, err := instruments.ParseRules(defaultConfig)
	if err != nil {
		return nil, err
	}

	f, err := rvf.Open(rawPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	phdr, err := instruments.PrimaryHeader(f)
	if err != nil {
		return nil, err
	}
	if err := instruments.Validate(rawPath, phdr, rules); err != nil {
		return nil, err
	}

	c, err := level2.NewContainer(defs)
	if err != nil {
		return nil, err
	}

	fibers, err := fiberList(phdr)
	if err != nil {
		return nil, err
	}
	log.Info("converting NEID product", "path", rawPath, "fibers", len(fibers))

	for i, fiber := range fibers {
		trace := fmt.Sprintf("TRACE%d", i+1)

		flux, fluxHdr, err := instruments.ReadImage(f, fiber+"FLUX")
		if err != nil {
			return nil, err
		}
		wave, _, err := instruments.ReadImage(f, fiber+"WAVE")
		if err != nil {
			return nil, err
		}
		variance, _, err := instruments.ReadImage(f, fiber+"VAR")
		if err != nil {
			return nil, err
		}
		blaze, blazeHdr, err := instruments.ReadImage(f, fiber+"BLAZE")
		if err != nil {
			return nil, err
		}

		if _, ok := c.TypeOf(trace); !ok {
			if err := c.CreateExtension(trace, level2.ExtSpectrum); err != nil {
				return nil, err
			}
		}
		triple := &level2.SpectrumTriple{Flux: flux, Wave: wave, Var: variance}
		if err := c.SetData(trace, triple); err != nil {
			return nil, err
		}
		if err := c.SetHeader(trace, fluxHdr); err != nil {
			return nil, err
		}

		blazeName := trace + "_BLAZE"
		if _, ok := c.TypeOf(blazeName); !ok {
			if err := c.CreateExtension(blazeName, level2.ExtImage); err != nil {
				return nil, err
			}
		}
		if err := c.SetData(blazeName, blaze); err != nil {
			return nil, err
		}
		if err := c.SetHeader(blazeName, blazeHdr); err != nil {
			return nil, err
		}
	}

	if err := setBarycentric(c, phdr); err != nil {
		return nil, err
	}
	if err := setTelluric(c, f); err != nil {
		return nil, err
	}
	if err := copyExpmeter(c, f, log); err != nil {
		return nil, err
	}
	seedPrimary(c, phdr)

	if err := c.AddReceiptEntry("neid.convert", filepath.Base(rawPath), "ok"); err != nil {
		return nil, err
	}
	return c, nil
}

// fiberList maps the observation mode to the active fibers.
func fiberList(phdr *rvf.HeaderBlock) ([]string, error) {
	mode, _ := phdr.Get("OBS-MODE")
	switch mode {
	case "HR":
		return []string{"SCI", "SKY", "CAL"}, nil
	case "HE":
		return []string{"SCI", "SKY"}, nil
	default:
		return nil, fmt.Errorf("neid: unknown observation mode %v", mode)
	}
}

// setBarycentric pulls the per-order barycentric velocity, redshift and
// barycentric JD series from indexed primary keywords.
func setBarycentric(c *level2.Container, phdr *rvf.HeaderBlock) error {
	series := []struct {
		prefix string
		ext    string
	}{
		{"SSBRV", "BARYCORR_KMS"},
		{"SSBZ", "BARYCORR_Z"},
		{"SSBJD", "BJD_TDB"},
	}
	for _, s := range series {
		values := make([]float64, numOrders)
		for order := 0; order < numOrders; order++ {
			key := fmt.Sprintf("%s%03d", s.prefix, topOrderIdx-order)
			v, err := instruments.FloatKeyword(phdr, key)
			if err != nil {
				return fmt.Errorf("neid: %s: %w", s.ext, err)
			}
			values[order] = v
		}
		if err := c.SetData(s.ext, rvf.Float64Image([]int{numOrders}, values)); err != nil {
			return err
		}
	}
	return nil
}

// setTelluric stores the line-absorption plane of the raw TELLURIC cube
// under TRACE1_TELLURIC.
func setTelluric(c *level2.Container, f *rvf.File) error {
	cube, hdr, err := instruments.ReadImage(f, "TELLURIC")
	if err != nil {
		return err
	}
	plane, err := firstPlane(cube)
	if err != nil {
		return fmt.Errorf("neid: telluric: %w", err)
	}
	if err := c.SetData("TRACE1_TELLURIC", plane); err != nil {
		return err
	}
	return c.SetHeader("TRACE1_TELLURIC", hdr)
}

// firstPlane slices a (a, b, n) cube down to its first (a, b) plane.
func firstPlane(cube *rvf.Image) (*rvf.Image, error) {
	if cube.NDim() != 3 {
		return nil, fmt.Errorf("expected 3 dims, got %d", cube.NDim())
	}
	data, ok := cube.Data.([]float64)
	if !ok {
		return nil, fmt.Errorf("expected float64 cube, got %T", cube.Data)
	}
	a, b, n := cube.Dims[0], cube.Dims[1], cube.Dims[2]
	if n == 0 {
		return nil, fmt.Errorf("cube has zero planes")
	}
	out := make([]float64, a*b)
	for i := 0; i < a*b; i++ {
		out[i] = data[i*n]
	}
	return rvf.Float64Image([]int{a, b}, out), nil
}

// copyExpmeter copies the exposure-meter table when the raw product carries
// one. Older products lack it; that is not an error.
func copyExpmeter(c *level2.Container, f *rvf.File, log logger.Logger) error {
	if f.Segment("EXPMETER") == nil {
		log.Warn("raw product has no EXPMETER segment")
		return nil
	}
	tbl, hdr, err := instruments.ReadTable(f, "EXPMETER")
	if err != nil {
		return err
	}
	if err := c.SetData("EXPMETER", tbl); err != nil {
		return err
	}
	return c.SetHeader("EXPMETER", hdr)
}

// seedPrimary copies the standard observation keywords into the container's
// primary header.
func seedPrimary(c *level2.Container, phdr *rvf.HeaderBlock) {
	hdr, _ := c.Header(level2.ExtNamePrimary)
	hdr.Set("INSTRMNT", "NEID", "Instrument name")
	for _, kw := range []string{
		"OBJECT", "OBSTYPE", "DATE-OBS", "EXPTIME", "RA", "DEC", "AIRMASS",
	} {
		instruments.CopyKeyword(hdr, phdr, kw)
	}
}
