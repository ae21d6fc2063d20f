package sheet

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// TemplateColumns is the header of the downloadable input template.
var TemplateColumns = []string{"latitude", "longitude", "kelurahan", "kecamatan"}

// Sample rows for the template, central Jakarta.
var templateRows = [][]string{
	{"-6.2088", "106.8456", "Menteng", "Menteng"},
	{"-6.1751", "106.8650", "Gambir", "Gambir"},
	{"-6.2146", "106.8451", "Tanah Abang", "Tanah Abang"},
	{"-6.1969", "106.7685", "Kebon Jeruk", "Kebon Jeruk"},
	{"-6.1703", "106.8143", "Petojo", "Gambir"},
}

// WriteTemplate writes the input template workbook to w.
func WriteTemplate(w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Template")
	if err != nil {
		return eris.Wrap(err, "sheet: add template sheet")
	}

	hr := sheet.AddRow()
	for _, name := range TemplateColumns {
		hr.AddCell().SetString(name)
	}
	for _, row := range templateRows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}

	return eris.Wrap(f.Write(w), "sheet: write template")
}

// WriteTemplateFile writes the input template workbook to path.
func WriteTemplateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "sheet: create template file")
	}
	defer f.Close() //nolint:errcheck

	return WriteTemplate(f)
}
