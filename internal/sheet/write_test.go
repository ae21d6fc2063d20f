package sheet

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func sampleRows() []ResultRow {
	return []ResultRow{
		{
			Record:      Record{Index: 1, Raw: []string{"-6.3", "106.9"}},
			Street:      "Jalan Sudirman",
			Kelurahan:   "Gambir",
			Kecamatan:   "Gambir",
			City:        "Jakarta Pusat",
			Province:    "DKI Jakarta",
			FullAddress: "Jalan Sudirman, Gambir, Jakarta",
			Confidence:  1.0,
			Status:      "OK",
			Source:      "nominatim",
		},
		{
			Record:     Record{Index: 0, Raw: []string{"-6.2", "106.8"}},
			Confidence: 0.0,
			Status:     "NOT_FOUND",
		},
	}
}

func TestWriteResults_XLSX_SortedByIndex(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResults(&buf, FormatXLSX, []string{"lat", "lon"}, sampleRows())
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)

	header := make([]string, len(rows[0].Cells))
	for i, c := range rows[0].Cells {
		header[i] = c.String()
	}
	assert.Equal(t, append([]string{"lat", "lon"}, ResultColumns...), header)

	// Row with Index 0 comes first even though it was appended last.
	assert.Equal(t, "-6.2", rows[1].Cells[0].String())
	assert.Equal(t, "NOT_FOUND", rows[1].Cells[9].String())
	assert.Equal(t, "-6.3", rows[2].Cells[0].String())
	assert.Equal(t, "Jalan Sudirman", rows[2].Cells[2].String())
	assert.Equal(t, "1.00", rows[2].Cells[8].String())
	assert.Equal(t, "OK", rows[2].Cells[9].String())
	assert.Equal(t, "nominatim", rows[2].Cells[10].String())
}

func TestWriteResults_CSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteResults(&buf, FormatCSV, []string{"lat", "lon"}, sampleRows())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, append([]string{"lat", "lon"}, ResultColumns...), records[0])
	assert.Equal(t, "NOT_FOUND", records[1][9])
	assert.Equal(t, "OK", records[2][9])
}

func TestWriteResults_RaggedRawRows(t *testing.T) {
	rows := []ResultRow{{
		Record: Record{Index: 0, Raw: []string{"-6.2"}}, // shorter than header
		Status: "OK",
	}}

	var buf bytes.Buffer
	err := WriteResults(&buf, FormatCSV, []string{"lat", "lon", "notes"}, rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, records[1], 3+len(ResultColumns))
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 6) // header + 5 samples

	header := make([]string, len(rows[0].Cells))
	for i, c := range rows[0].Cells {
		header[i] = c.String()
	}
	assert.Equal(t, TemplateColumns, header)
	assert.Equal(t, "-6.2088", rows[1].Cells[0].String())
	assert.Equal(t, "Menteng", rows[1].Cells[2].String())
}

func TestSummarize(t *testing.T) {
	rows := []ResultRow{
		{Status: "OK", Confidence: 1.0},
		{Status: "OK", Confidence: 0.8},
		{Status: "OK", Confidence: 0.6},
		{Status: "NOT_FOUND", Confidence: 0.0},
		{Status: "ERROR", Confidence: 0.0},
	}

	s := Summarize(rows)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.ByStatus["OK"])
	assert.Equal(t, 1, s.ByStatus["NOT_FOUND"])
	assert.Equal(t, 1, s.ByStatus["ERROR"])
	assert.InDelta(t, 0.48, s.MeanConfidence, 1e-9)
	assert.Equal(t, 1, s.HighConfidence)
	assert.Equal(t, 1, s.MidConfidence)
	assert.Equal(t, 3, s.LowConfidence)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.MeanConfidence)
}
