package level2

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

// Info renders a human-readable summary: one row per header with its card
// count, and one row per data extension with its declared kind and current
// dimension. Purely observational.
func (c *Container) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level %d data product\n\n", c.level)

	hw := table.NewWriter()
	hw.SetStyle(table.StyleLight)
	hw.AppendHeader(table.Row{"Header Name", "# Cards"})
	for _, name := range c.order {
		hw.AppendRow(table.Row{name, c.headers[name].Len()})
	}
	b.WriteString(hw.Render())
	b.WriteString("\n\n")

	ew := table.NewWriter()
	ew.SetStyle(table.StyleLight)
	ew.AppendHeader(table.Row{"Extension Name", "Data Type", "Data Dimension"})
	for _, name := range c.order {
		if name == ExtNamePrimary {
			continue
		}
		typ := c.exts[name]
		ew.AppendRow(table.Row{name, typ.String(), c.dimString(name, typ)})
	}
	b.WriteString(ew.Render())
	b.WriteString("\n")
	return b.String()
}

func (c *Container) dimString(name string, typ ExtType) string {
	switch typ {
	case ExtImage:
		im, _ := c.payloads[name].(*rvf.Image)
		return shapeString(im.Shape())
	case ExtTable:
		tbl, _ := c.payloads[name].(*rvf.Table)
		return fmt.Sprintf("%d rows", tbl.Rows())
	case ExtSpectrum:
		sp, _ := c.payloads[name].(*SpectrumTriple)
		return shapeString(sp.Shape())
	default:
		return "-"
	}
}

func shapeString(dims []int) string {
	if len(dims) == 0 {
		return "()"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
