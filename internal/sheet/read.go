package sheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Column aliases, matched case-insensitively against the header row.
var (
	latAliases       = []string{"latitude", "lat", "y"}
	lonAliases       = []string{"longitude", "lon", "lng", "x"}
	kelurahanAliases = []string{"kelurahan"}
	kecamatanAliases = []string{"kecamatan"}
)

// ReadFile parses an input spreadsheet into a Table. The format is chosen by
// file extension: .csv is parsed as CSV, everything else as XLSX.
func ReadFile(path string) (*Table, error) {
	rows, format, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return extract(rows, format)
}

// ReadBytes parses a spreadsheet held in memory, as received by the upload
// endpoint.
func ReadBytes(data []byte, format Format) (*Table, error) {
	if format == FormatCSV {
		rows, err := readCSV(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return extract(rows, FormatCSV)
	}

	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}
	rows, err := sheetRows(f)
	if err != nil {
		return nil, err
	}
	return extract(rows, FormatXLSX)
}

func readRows(path string) ([][]string, Format, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, FormatCSV, eris.Wrap(err, "sheet: open csv")
		}
		defer f.Close() //nolint:errcheck

		rows, err := readCSV(f)
		return rows, FormatCSV, err
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, FormatXLSX, eris.Wrap(err, "sheet: open xlsx")
	}
	rows, err := sheetRows(f)
	return rows, FormatXLSX, err
}

func sheetRows(f *xlsx.File) ([][]string, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: xlsx file has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "sheet: read csv row")
		}
		rows = append(rows, record)
	}
}

// extract resolves the header and converts data rows into Records.
// It fails before producing any record when a required column is absent or a
// coordinate cell cannot be parsed, so bad input never reaches the network.
func extract(rows [][]string, format Format) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("sheet: input file is empty")
	}

	header := rows[0]
	latCol, ok := findColumn(header, latAliases)
	if !ok {
		return nil, &ColumnError{Column: "latitude"}
	}
	lonCol, ok := findColumn(header, lonAliases)
	if !ok {
		return nil, &ColumnError{Column: "longitude"}
	}
	kelCol, hasKel := findColumn(header, kelurahanAliases)
	kecCol, hasKec := findColumn(header, kecamatanAliases)

	table := &Table{Header: header, Format: format}
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}

		lat, err := parseCoordinate(cellAt(row, latCol))
		if err != nil {
			return nil, &ValueError{Row: i + 2, Column: header[latCol], Value: cellAt(row, latCol)}
		}
		lon, err := parseCoordinate(cellAt(row, lonCol))
		if err != nil {
			return nil, &ValueError{Row: i + 2, Column: header[lonCol], Value: cellAt(row, lonCol)}
		}

		rec := Record{
			Index: len(table.Records),
			Lat:   lat,
			Lon:   lon,
			Raw:   row,
		}
		if hasKel {
			rec.ExpectedKelurahan = strings.TrimSpace(cellAt(row, kelCol))
		}
		if hasKec {
			rec.ExpectedKecamatan = strings.TrimSpace(cellAt(row, kecCol))
		}
		table.Records = append(table.Records, rec)
	}

	if len(table.Records) == 0 {
		return nil, eris.New("sheet: no coordinate rows found")
	}
	return table, nil
}

func findColumn(header []string, aliases []string) (int, bool) {
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, alias := range aliases {
			if name == alias {
				return i, true
			}
		}
	}
	return 0, false
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// parseCoordinate accepts both "." and "," decimal separators; exported
// Indonesian spreadsheets frequently carry the latter.
func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return v, nil
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	}
	return 0, err
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
