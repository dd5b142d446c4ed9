package level2

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// toASCIISafe normalises a string to NFKD form and drops every code point
// outside the ASCII range. Header value slots only tolerate ASCII.
func toASCIISafe(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for i := 0; i < len(decomposed); i++ {
		if decomposed[i] < 0x80 {
			b.WriteByte(decomposed[i])
		}
	}
	return b.String()
}
