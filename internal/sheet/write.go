package sheet

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ResultColumns are appended to the original header in the output file.
// The names match the original tool's output so downstream consumers keep
// working.
var ResultColumns = []string{
	"Nama_Jalan",
	"Kelurahan",
	"Kecamatan",
	"Kota",
	"Provinsi",
	"Alamat_Lengkap",
	"Confidence_Score",
	"Status",
	"Source",
}

// WriteResults writes the annotated output in the given format: the original
// columns followed by the geocoding columns, rows sorted by input order.
func WriteResults(w io.Writer, format Format, header []string, rows []ResultRow) error {
	sorted := make([]ResultRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Record.Index < sorted[j].Record.Index
	})

	outHeader := append(append([]string{}, header...), ResultColumns...)

	if format == FormatCSV {
		return writeCSV(w, outHeader, header, sorted)
	}
	return writeXLSX(w, outHeader, header, sorted)
}

func resultCells(width int, row ResultRow) []string {
	cells := make([]string, 0, width+len(ResultColumns))
	for i := 0; i < width; i++ {
		cells = append(cells, cellAt(row.Record.Raw, i))
	}
	return append(cells,
		row.Street,
		row.Kelurahan,
		row.Kecamatan,
		row.City,
		row.Province,
		row.FullAddress,
		strconv.FormatFloat(row.Confidence, 'f', 2, 64),
		row.Status,
		row.Source,
	)
}

func writeXLSX(w io.Writer, outHeader, header []string, rows []ResultRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Hasil")
	if err != nil {
		return eris.Wrap(err, "sheet: add result sheet")
	}

	hr := sheet.AddRow()
	for _, name := range outHeader {
		hr.AddCell().SetString(name)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range resultCells(len(header), row) {
			r.AddCell().SetString(cell)
		}
	}

	return eris.Wrap(f.Write(w), "sheet: write xlsx")
}

func writeCSV(w io.Writer, outHeader, header []string, rows []ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outHeader); err != nil {
		return eris.Wrap(err, "sheet: write csv header")
	}
	for _, row := range rows {
		if err := cw.Write(resultCells(len(header), row)); err != nil {
			return eris.Wrap(err, "sheet: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "sheet: flush csv")
}
