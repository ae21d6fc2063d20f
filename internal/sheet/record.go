// Package sheet reads coordinate spreadsheets and writes annotated geocoding results.
package sheet

import "fmt"

// Record is one coordinate row extracted from the input file. Index is the
// stable ordinal of the row within the input (0-based, header excluded) and
// keys the row through processing and reassembly. Raw preserves the original
// cells so the output can carry every input column through unchanged.
type Record struct {
	Index             int
	Lat               float64
	Lon               float64
	ExpectedKelurahan string
	ExpectedKecamatan string
	Raw               []string
}

// ResultRow is a Record merged with its geocoding output.
type ResultRow struct {
	Record      Record
	Street      string
	Kelurahan   string
	Kecamatan   string
	City        string
	Province    string
	FullAddress string
	Confidence  float64
	Status      string
	Source      string
}

// ColumnError reports a required column missing from the input header.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("sheet: required column %q not found", e.Column)
}

// ValueError reports a cell that could not be parsed as a coordinate.
type ValueError struct {
	Row    int // 1-based file row, matching what the user sees in a spreadsheet app
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("sheet: row %d: column %q: cannot parse %q as a coordinate", e.Row, e.Column, e.Value)
}

// Format identifies the tabular file format.
type Format int

const (
	FormatXLSX Format = iota
	FormatCSV
)

func (f Format) String() string {
	if f == FormatCSV {
		return "csv"
	}
	return "xlsx"
}

// Table is a parsed input file: the original header plus extracted records.
type Table struct {
	Header  []string
	Records []Record
	Format  Format
}
