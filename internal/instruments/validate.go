package instruments

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// Rules drive the pre-conversion validation of a raw product. Keyword names
// are instrument-specific; the checks are shared.
type Rules struct {
	CategoryKeyword  string   `yaml:"category_keyword"`
	CategoryRequired string   `yaml:"category_required"`
	TargetKeyword    string   `yaml:"target_keyword"`
	TypeKeyword      string   `yaml:"type_keyword"`
	ExcludeObjects   []string `yaml:"exclude_objects"`
	ExcludeTypes     []string `yaml:"exclude_types"`
}

// ParseRules decodes a yaml rules document.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("instruments: rules: %w", err)
	}
	return r, nil
}

// PreconditionError rejects a raw product before conversion begins. It is
// returned unchanged to the caller; the container is never constructed.
type PreconditionError struct {
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("instruments: %s not convertible: %s", e.Path, e.Reason)
}

// Validate checks a raw product's primary metadata against the rules. The
// observation category must equal the required value; the target name and
// observation type must not be excluded.
func Validate(path string, hdr *rvf.HeaderBlock, rules Rules) error {
	category := stringKeyword(hdr, rules.CategoryKeyword)
	if rules.CategoryRequired != "" && category != rules.CategoryRequired {
		return &PreconditionError{
			Path:   path,
			Reason: fmt.Sprintf("category is %q instead of %q", category, rules.CategoryRequired),
		}
	}

	target := stringKeyword(hdr, rules.TargetKeyword)
	if slices.Contains(rules.ExcludeObjects, target) {
		return &PreconditionError{
			Path:   path,
			Reason: fmt.Sprintf("observation of excluded object %q", target),
		}
	}

	// Some instruments store a compound type value; the discriminating
	// component is the second field.
	obsType := stringKeyword(hdr, rules.TypeKeyword)
	if parts := strings.Split(obsType, ","); len(parts) > 1 {
		obsType = strings.TrimSpace(parts[1])
	}
	if slices.Contains(rules.ExcludeTypes, obsType) {
		return &PreconditionError{
			Path:   path,
			Reason: fmt.Sprintf("excluded observation type %q", obsType),
		}
	}
	return nil
}

// FibersForType selects the active fibers for an observation from the
// compound type keyword. ESO-style products discriminate on the second
// field of the value ("OBJECT,SKY" reads fiber A on target, B on sky).
func FibersForType(hdr *rvf.HeaderBlock, typeKeyword string, fibers map[string][]string) []string {
	obsType := stringKeyword(hdr, typeKeyword)
	if parts := strings.Split(obsType, ","); len(parts) > 1 {
		obsType = strings.TrimSpace(parts[1])
	}
	return fibers[obsType]
}

func stringKeyword(hdr *rvf.HeaderBlock, keyword string) string {
	if keyword == "" {
		return ""
	}
	v, ok := hdr.Get(keyword)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
