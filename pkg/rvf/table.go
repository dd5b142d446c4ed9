package rvf

import (
	"fmt"
)

// ColType identifies the element type of a table column.
type ColType uint32

const (
	ColFloat64 ColType = iota
	ColInt64
	ColString
	ColBool
)

func (t ColType) String() string {
	switch t {
	case ColFloat64:
		return "f64"
	case ColInt64:
		return "i64"
	case ColString:
		return "string"
	case ColBool:
		return "bool"
	default:
		return fmt.Sprintf("coltype(%d)", uint32(t))
	}
}

// Column is one named, typed column. The concrete type of Values follows
// Type: []float64, []int64, []string or []bool.
type Column struct {
	Name   string
	Type   ColType
	Values any
}

func Float64Col(name string, values []float64) Column {
	return Column{Name: name, Type: ColFloat64, Values: values}
}

func Int64Col(name string, values []int64) Column {
	return Column{Name: name, Type: ColInt64, Values: values}
}

func StringCol(name string, values []string) Column {
	return Column{Name: name, Type: ColString, Values: values}
}

func BoolCol(name string, values []bool) Column {
	return Column{Name: name, Type: ColBool, Values: values}
}

func (c *Column) len() (int, error) {
	switch v := c.Values.(type) {
	case nil:
		return 0, nil
	case []float64:
		return len(v), nil
	case []int64:
		return len(v), nil
	case []string:
		return len(v), nil
	case []bool:
		return len(v), nil
	default:
		return 0, fmt.Errorf("rvf: unsupported column values type %T", c.Values)
	}
}

// Table is a columnar dataset. All columns hold the same number of rows.
type Table struct {
	Cols []Column
}

func NewTable(cols ...Column) *Table {
	return &Table{Cols: cols}
}

// Rows returns the row count (the length of the first column).
func (t *Table) Rows() int {
	if t == nil || len(t.Cols) == 0 {
		return 0
	}
	n, err := t.Cols[0].len()
	if err != nil {
		return 0
	}
	return n
}

// Col returns the column with the given name, or nil.
func (t *Table) Col(name string) *Column {
	if t == nil {
		return nil
	}
	for i := range t.Cols {
		if t.Cols[i].Name == name {
			return &t.Cols[i]
		}
	}
	return nil
}

// Validate checks column typing and that every column holds the same number
// of rows.
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	rows := -1
	for i := range t.Cols {
		c := &t.Cols[i]
		n, err := c.len()
		if err != nil {
			return err
		}
		ok := c.Values == nil
		switch c.Type {
		case ColFloat64:
			_, k := c.Values.([]float64)
			ok = ok || k
		case ColInt64:
			_, k := c.Values.([]int64)
			ok = ok || k
		case ColString:
			_, k := c.Values.([]string)
			ok = ok || k
		case ColBool:
			_, k := c.Values.([]bool)
			ok = ok || k
		default:
			return fmt.Errorf("rvf: unknown column type %s", c.Type)
		}
		if !ok {
			return fmt.Errorf("rvf: column %q values %T do not match type %s", c.Name, c.Values, c.Type)
		}
		if rows == -1 {
			rows = n
		} else if n != rows {
			return fmt.Errorf("rvf: column %q has %d rows, expected %d", c.Name, n, rows)
		}
	}
	return nil
}

// AppendRow appends one row. vals must match the column count and types;
// numeric values are coerced the same way card values are.
func (t *Table) AppendRow(vals ...any) error {
	if len(vals) != len(t.Cols) {
		return fmt.Errorf("rvf: row has %d values, table has %d columns", len(vals), len(t.Cols))
	}
	for i := range t.Cols {
		c := &t.Cols[i]
		switch c.Type {
		case ColFloat64:
			v, ok := toFloat64(vals[i])
			if !ok {
				return fmt.Errorf("rvf: column %q: cannot store %T", c.Name, vals[i])
			}
			cur, _ := c.Values.([]float64)
			c.Values = append(cur, v)
		case ColInt64:
			v, ok := toInt64(vals[i])
			if !ok {
				return fmt.Errorf("rvf: column %q: cannot store %T", c.Name, vals[i])
			}
			cur, _ := c.Values.([]int64)
			c.Values = append(cur, v)
		case ColString:
			v, ok := vals[i].(string)
			if !ok {
				return fmt.Errorf("rvf: column %q: cannot store %T", c.Name, vals[i])
			}
			cur, _ := c.Values.([]string)
			c.Values = append(cur, v)
		case ColBool:
			v, ok := vals[i].(bool)
			if !ok {
				return fmt.Errorf("rvf: column %q: cannot store %T", c.Name, vals[i])
			}
			cur, _ := c.Values.([]bool)
			c.Values = append(cur, v)
		}
	}
	return nil
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	default:
		return 0, false
	}
}

// EncodeTable serialises a table payload. A nil table encodes as empty.
func EncodeTable(t *Table) ([]byte, error) {
	if t == nil {
		t = &Table{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var e encbuf
	e.putU32(uint32(len(t.Cols)))
	e.putU64(uint64(t.Rows()))
	for i := range t.Cols {
		c := &t.Cols[i]
		e.putString(c.Name)
		e.putU32(uint32(c.Type))
		switch v := c.Values.(type) {
		case []float64:
			for _, x := range v {
				e.putF64(x)
			}
		case []int64:
			for _, x := range v {
				e.putI64(x)
			}
		case []string:
			for _, x := range v {
				e.putString(x)
			}
		case []bool:
			for _, x := range v {
				e.putBool(x)
			}
		}
	}
	return e.bytes(), nil
}

// DecodeTable parses a table payload.
func DecodeTable(data []byte) (*Table, error) {
	d := decbuf{b: data}
	ncols, err := d.u32()
	if err != nil {
		return nil, err
	}
	nrows, err := d.u64()
	if err != nil {
		return nil, err
	}
	// A column costs at least 8 bytes (name length + type) before values.
	nc, err := d.count(uint64(ncols), 8)
	if err != nil {
		return nil, err
	}
	t := &Table{}
	for i := 0; i < nc; i++ {
		name, err := d.str()
		if err != nil {
			return nil, err
		}
		typ, err := d.u32()
		if err != nil {
			return nil, err
		}
		col := Column{Name: name, Type: ColType(typ)}
		switch col.Type {
		case ColFloat64:
			n, err := d.count(nrows, 8)
			if err != nil {
				return nil, err
			}
			out := make([]float64, n)
			for j := range out {
				if out[j], err = d.f64(); err != nil {
					return nil, err
				}
			}
			col.Values = out
		case ColInt64:
			n, err := d.count(nrows, 8)
			if err != nil {
				return nil, err
			}
			out := make([]int64, n)
			for j := range out {
				if out[j], err = d.i64(); err != nil {
					return nil, err
				}
			}
			col.Values = out
		case ColString:
			n, err := d.count(nrows, 4)
			if err != nil {
				return nil, err
			}
			out := make([]string, n)
			for j := range out {
				if out[j], err = d.str(); err != nil {
					return nil, err
				}
			}
			col.Values = out
		case ColBool:
			n, err := d.count(nrows, 1)
			if err != nil {
				return nil, err
			}
			out := make([]bool, n)
			for j := range out {
				if out[j], err = d.bool(); err != nil {
					return nil, err
				}
			}
			col.Values = out
		default:
			return nil, fmt.Errorf("%w: column type %d", ErrCorruptFile, typ)
		}
		t.Cols = append(t.Cols, col)
	}
	return t, nil
}
