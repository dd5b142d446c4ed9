// Package harpsn converts HARPS-N DRS products into the standard Level 2
// container. The instrument shares the HARPS data layout but carries TNG
// header conventions and images each order once.
package harpsn

import (
	_ "embed"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eprvstd/rvdata/internal/instruments"
	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/pkg/level2"
	"github.com/eprvstd/rvdata/pkg/rvf"
)

//go:embed config.yaml
var defaultConfig []byte

// TNG DRS quality-control keywords copied into the standard primary header.
const (
	kwBERV  = "HIERARCH TNG QC BERV"
	kwBJD   = "HIERARCH TNG QC BJD"
	kwSNR50 = "HIERARCH TNG QC ORDER50 SNR"
)

type config struct {
	instruments.Rules `yaml:",inline"`

	SliceCount int                 `yaml:"slice_count"`
	Fibers     map[string][]string `yaml:"fibers"`
}

func parseConfig(data []byte) (config, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("harpsn: config: %w", err)
	}
	if cfg.SliceCount < 1 {
		cfg.SliceCount = 1
	}
	return cfg, nil
}

func init() {
	instruments.Register("harpsn", Convert)
}

// Convert reads a HARPS-N DRS product and populates a standard container.
func Convert(rawPath string, defs *level2.Definitions, log logger.Logger) (*level2.Container, error) {
	if log == nil {
		log = logger.Default()
	}
	cfg, err := parseConfig(defaultConfig)
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
	if err := instruments.Validate(rawPath, phdr, cfg.Rules); err != nil {
		return nil, err
	}

	c, err := level2.NewContainer(defs)
	if err != nil {
		return nil, err
	}

	fibers := instruments.FibersForType(phdr, cfg.Rules.TypeKeyword, cfg.Fibers)
	if len(fibers) == 0 {
		return nil, fmt.Errorf("harpsn: no fibers configured for this observation type")
	}
	log.Info("converting HARPS-N product", "path", rawPath, "fibers", len(fibers))

	trace := 1
	for _, fiber := range fibers {
		if err := instruments.ConvertSlicedFiber(c, f, fiber, trace, cfg.SliceCount); err != nil {
			return nil, err
		}
		trace += cfg.SliceCount
	}

	seedPrimary(c, phdr)

	if err := c.AddReceiptEntry("harpsn.convert", filepath.Base(rawPath), "ok"); err != nil {
		return nil, err
	}
	return c, nil
}

func seedPrimary(c *level2.Container, phdr *rvf.HeaderBlock) {
	hdr, _ := c.Header(level2.ExtNamePrimary)
	hdr.Set("INSTRMNT", "HARPS-N", "Instrument name")
	hdr.Set("TELESCOP", "TNG", "Telescope")
	for _, kw := range []string{
		"OBJECT", "DATE-OBS", "EXPTIME", "RA", "DEC", "AIRMASS",
	} {
		instruments.CopyKeyword(hdr, phdr, kw)
	}
	if v, err := instruments.FloatKeyword(phdr, kwBERV); err == nil {
		hdr.Set("BERV", v, "Barycentric velocity [km/s]")
	}
	if v, err := instruments.FloatKeyword(phdr, kwBJD); err == nil {
		hdr.Set("BJD", v, "Barycentric Julian date")
	}
	if v, err := instruments.FloatKeyword(phdr, kwSNR50); err == nil {
		hdr.Set("SNR50", v, "SNR in order 50")
	}
}
