package level2

import (
	"errors"
	"strings"
	"testing"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

func TestNewContainerShape(t *testing.T) {
	t.Parallel()

	c, err := NewContainer(nil)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	if c.Level() != 2 {
		t.Fatalf("level = %d, want 2", c.Level())
	}

	// Every declared extension has exactly one header.
	for _, name := range c.Extensions() {
		if _, ok := c.Header(name); !ok {
			t.Fatalf("extension %s has no header", name)
		}
	}

	// PRIMARY is seeded from the keyword table and carries no payload.
	hdr, _ := c.Header(ExtNamePrimary)
	if hdr.Len() == 0 {
		t.Fatal("PRIMARY header not seeded")
	}
	if v, _ := hdr.Get("STANDARD"); v != "EPRV-L2" {
		t.Fatalf("STANDARD = %v", v)
	}
	if _, ok := c.Data(ExtNamePrimary); ok {
		t.Fatal("PRIMARY has a payload")
	}

	// Spectrum placeholders are empty triples.
	sp, err := c.Spectrum("TRACE1")
	if err != nil {
		t.Fatalf("TRACE1: %v", err)
	}
	if sp.Flux != nil {
		t.Fatal("placeholder spectrum not empty")
	}

	// Administrative tables exist.
	if _, err := c.TableData(ExtNameReceipt); err != nil {
		t.Fatalf("RECEIPT: %v", err)
	}
	if _, err := c.TableData(ExtNameConfig); err != nil {
		t.Fatalf("CONFIG: %v", err)
	}
}

func TestCreateExtensionDuplicate(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(&Definitions{})
	if err := c.CreateExtension("X", ExtImage); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := c.Extensions()

	err := c.CreateExtension("X", ExtTable)
	if !errors.Is(err, ErrDuplicateExtension) {
		t.Fatalf("err = %v, want ErrDuplicateExtension", err)
	}
	// The failed call left the registry unchanged.
	after := c.Extensions()
	if len(after) != len(before) {
		t.Fatalf("extension set changed: %v -> %v", before, after)
	}
	if typ, _ := c.TypeOf("X"); typ != ExtImage {
		t.Fatalf("X type = %s, want image", typ)
	}

	// Names are case-normalised, so a lower-case duplicate also fails.
	if err := c.CreateExtension("x", ExtImage); !errors.Is(err, ErrDuplicateExtension) {
		t.Fatalf("err = %v, want ErrDuplicateExtension", err)
	}
}

func TestDelExtension(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(&Definitions{})
	if err := c.DelExtension("GONE"); !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("err = %v, want ErrUnknownExtension", err)
	}

	if err := c.CreateExtension("X", ExtImage); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.DelExtension("X"); err != nil {
		t.Fatalf("del: %v", err)
	}
	// All three records go together.
	if _, ok := c.TypeOf("X"); ok {
		t.Fatal("type record survived delete")
	}
	if _, ok := c.Header("X"); ok {
		t.Fatal("header record survived delete")
	}
	if _, ok := c.Data("X"); ok {
		t.Fatal("payload record survived delete")
	}
}

func TestSetDataUnknownExtension(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(&Definitions{})
	before := c.Extensions()

	err := c.SetData("NOPE", rvf.Float64Image([]int{1}, []float64{1}))
	if !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("err = %v, want ErrUnknownExtension", err)
	}
	if len(c.Extensions()) != len(before) {
		t.Fatal("failed SetData changed the registry")
	}
	if err := c.SetHeader("NOPE", rvf.NewHeaderBlock()); !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("err = %v, want ErrUnknownExtension", err)
	}
}

func TestSetDataCheckedVariant(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(&Definitions{})
	if err := c.CreateExtension("IMG", ExtImage); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.SetData("IMG", rvf.NewTable()); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
	if err := c.SetData("IMG", rvf.Float64Image([]int{2}, []float64{1, 2})); err != nil {
		t.Fatalf("set image: %v", err)
	}

	// The primary extension never carries a payload.
	if err := c.SetData(ExtNamePrimary, rvf.Float64Image(nil, nil)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestSetDataSpectrumConsistency(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(&Definitions{})
	if err := c.CreateExtension("C1", ExtSpectrum); err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := &SpectrumTriple{
		Flux: rvf.Float64Image([]int{5}, make([]float64, 5)),
		Wave: rvf.Float64Image([]int{4}, make([]float64, 4)),
		Var:  rvf.Float64Image([]int{5}, make([]float64, 5)),
	}
	if err := c.SetData("C1", bad); err == nil {
		t.Fatal("mismatched triple accepted")
	}

	good := &SpectrumTriple{
		Flux: rvf.Float64Image([]int{5}, make([]float64, 5)),
		Wave: rvf.Float64Image([]int{5}, make([]float64, 5)),
		Var:  rvf.Float64Image([]int{5}, make([]float64, 5)),
	}
	if err := c.SetData("C1", good); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestAddReceiptEntry(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(nil)
	if err := c.AddReceiptEntry("neid.convert", "raw.rvf", "ok"); err != nil {
		t.Fatalf("add: %v", err)
	}
	tbl, err := c.TableData(ExtNameReceipt)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if tbl.Rows() != 1 {
		t.Fatalf("rows = %d, want 1", tbl.Rows())
	}
	ids, _ := tbl.Col("ID").Values.([]string)
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("receipt ID missing: %v", ids)
	}
}

func TestInfoRendersEveryExtension(t *testing.T) {
	t.Parallel()

	c, _ := NewContainer(nil)
	if err := c.SetData("BJD_TDB", rvf.Float64Image([]int{122}, make([]float64, 122))); err != nil {
		t.Fatalf("set: %v", err)
	}
	out := c.Info()
	for _, name := range c.Extensions() {
		if !strings.Contains(out, name) {
			t.Fatalf("Info() missing extension %s:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "(122)") {
		t.Fatalf("Info() missing BJD_TDB dimension:\n%s", out)
	}
}

func TestToASCIISafe(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain":      "plain",
		"Prox\u00e9": "Proxe", // decomposes, accent dropped
		"\u201cq\u201d \u00b5m": "q m", // curly quotes and micro sign have no ASCII decomposition
	}
	for in, want := range cases {
		if got := toASCIISafe(in); got != want {
			t.Fatalf("toASCIISafe(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDefinitionsRejectsDuplicateExtensions(t *testing.T) {
	t.Parallel()

	schema := strings.NewReader("Name,Type\nPRIMARY,primary\nSCIENCE,image\nscience,table\n")
	keywords := strings.NewReader("Keyword,Value,Description\n")
	if _, err := ParseDefinitions(schema, keywords); err == nil {
		t.Fatal("duplicate schema rows accepted")
	}
}

func TestParseDefinitionsUniqueRows(t *testing.T) {
	t.Parallel()

	schema := strings.NewReader("Name,Type\nPRIMARY,primary\nSCIENCE,image\n")
	keywords := strings.NewReader("Keyword,Value,Description\nOBJECT,,target\n")
	defs, err := ParseDefinitions(schema, keywords)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs.Schema) != 2 {
		t.Fatalf("schema rows = %d, want 2", len(defs.Schema))
	}
}
