package level2

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

//go:embed data/level2_extensions.csv data/level2_primary_keywords.csv
var defsFS embed.FS

// SchemaEntry declares one extension of the standard container shape.
// Schema order is the canonical write-out order.
type SchemaEntry struct {
	Name string
	Type ExtType
}

// KeywordDef is one seed row for the PRIMARY header. HasValue distinguishes
// an empty string value from an absent one.
type KeywordDef struct {
	Keyword     string
	Value       string
	HasValue    bool
	Description string
}

// Definitions is the externally supplied container shape: the ordered
// extension schema plus the PRIMARY header seed table. It is passed into
// NewContainer explicitly so multiple schema versions can coexist in one
// process and tests can inject fixtures.
type Definitions struct {
	Schema          []SchemaEntry
	PrimaryKeywords []KeywordDef
}

// LoadDefinitions reads the schema and keyword tables from delimited text
// files.
func LoadDefinitions(schemaPath, keywordsPath string) (*Definitions, error) {
	sf, err := os.Open(schemaPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sf.Close() }()
	kf, err := os.Open(keywordsPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = kf.Close() }()
	return ParseDefinitions(sf, kf)
}

// ParseDefinitions parses the two definition tables. Both are CSV with a
// header row: the schema table has columns (Ext, Type), the keyword table
// (Keyword, Value, Description).
func ParseDefinitions(schema, keywords io.Reader) (*Definitions, error) {
	defs := &Definitions{}

	sr := csv.NewReader(schema)
	sr.FieldsPerRecord = 2
	rows, err := sr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("level2: schema table: %w", err)
	}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		typ, err := ParseExtType(row[1])
		if err != nil {
			return nil, fmt.Errorf("level2: schema row %d: %w", i, err)
		}
		name := normExtName(row[0])
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("level2: schema row %d: duplicate extension %s", i, name)
		}
		seen[name] = struct{}{}
		defs.Schema = append(defs.Schema, SchemaEntry{Name: name, Type: typ})
	}

	kr := csv.NewReader(keywords)
	kr.FieldsPerRecord = 3
	rows, err = kr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("level2: keyword table: %w", err)
	}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		kw := KeywordDef{
			Keyword:     row[0],
			Value:       row[1],
			HasValue:    row[1] != "",
			Description: row[2],
		}
		if kw.Keyword == "" {
			continue
		}
		defs.PrimaryKeywords = append(defs.PrimaryKeywords, kw)
	}
	return defs, nil
}

// DefaultDefinitions returns the embedded Level 2 standard tables. A fresh
// value is parsed per call so callers can mutate their copy freely.
func DefaultDefinitions() *Definitions {
	sf, err := defsFS.Open("data/level2_extensions.csv")
	if err != nil {
		panic(fmt.Sprintf("level2: embedded schema: %v", err))
	}
	defer func() { _ = sf.Close() }()
	kf, err := defsFS.Open("data/level2_primary_keywords.csv")
	if err != nil {
		panic(fmt.Sprintf("level2: embedded keywords: %v", err))
	}
	defer func() { _ = kf.Close() }()
	defs, err := ParseDefinitions(sf, kf)
	if err != nil {
		panic(fmt.Sprintf("level2: embedded definitions: %v", err))
	}
	return defs
}
