// Package instruments hosts the instrument-specific converters that populate
// a standard Level 2 container from a raw spectrograph product. Converters
// only ever go through the container's public mutation interface.
package instruments

import (
	"fmt"
	"sort"

	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/pkg/level2"
)

// ConvertFunc reads one raw product and returns a populated Level 2
// container. defs may be nil for the embedded standard definitions.
type ConvertFunc func(rawPath string, defs *level2.Definitions, log logger.Logger) (*level2.Container, error)

var registry = map[string]ConvertFunc{}

// Register installs a converter under an instrument name. Called from
// instrument package init functions.
func Register(name string, fn ConvertFunc) {
	registry[name] = fn
}

// ForName returns the converter registered for an instrument.
func ForName(name string) (ConvertFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("instruments: no converter for %q (known: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the registered instrument names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
