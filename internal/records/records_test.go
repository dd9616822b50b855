package records

import (
	"bytes"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestReadCSV(t *testing.T) {
	input := "Id,Title, Status \n" +
		"IR1,\"Printer, 3rd floor\",Active\n" +
		"IR2,Short\n" +
		",,\n" +
		"IR3,Long,Closed,extra\n"

	file, err := ReadCSV(strings.NewReader(input), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "Title", "Status"}, file.Header)
	require.Len(t, file.Records, 3)

	assert.Equal(t, "Printer, 3rd floor", file.Records[0].Get("Title"))
	assert.Equal(t, "Active", file.Records[0].Get("Status"))
	assert.Equal(t, 1, file.Records[0].Row)

	assert.Equal(t, "", file.Records[1].Get("Status"))
	assert.Equal(t, "Closed", file.Records[2].Get("Status"))
	assert.Equal(t, 4, file.Records[2].Row)

	require.Len(t, file.Warnings, 2)
	assert.Equal(t, 2, file.Warnings[0].Row)
	assert.Contains(t, file.Warnings[0].Message, "padding")
	assert.Contains(t, file.Warnings[1].Message, "truncating")
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), Options{})
	assert.ErrorContains(t, err, "no header row")

	_, err = ReadCSV(strings.NewReader("Id,Id\nIR1,IR1\n"), Options{})
	assert.ErrorContains(t, err, "duplicate header column")

	_, err = ReadCSV(strings.NewReader(" , \n"), Options{})
	assert.ErrorContains(t, err, "empty header")

	_, err = ReadCSV(strings.NewReader("Id\n"), Options{Encoding: "ebcdic"})
	assert.ErrorContains(t, err, "unsupported input encoding")
}

func TestDecodeDetectsEncodings(t *testing.T) {
	want := "Id,Title\nIR1,Café\n"

	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(want))
	require.NoError(t, err)

	cp1252, err := charmap.Windows1252.NewEncoder().Bytes([]byte(want))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte(want)},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, want...)},
		{"utf-16le bom", utf16le},
		{"windows-1252", cp1252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := ReadCSV(bytes.NewReader(tt.data), Options{Encoding: "auto"})
			require.NoError(t, err)
			require.Len(t, file.Records, 1)
			assert.Equal(t, "Id", file.Header[0])
			assert.Equal(t, "Café", file.Records[0].Get("Title"))
		})
	}
}

func TestReadFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incidents.xlsx")

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"Id", "Title", "Status"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"IR1", "Printer", "Active"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{"IR2", "Mouse"}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	file, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Len(t, file.Records, 2)
	assert.Equal(t, "Printer", file.Records[0].Get("Title"))
	assert.Equal(t, "", file.Records[1].Get("Status"))
	assert.Empty(t, file.Warnings)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestGroupByAndRequireColumns(t *testing.T) {
	file, err := ReadCSV(strings.NewReader("Parent,Id\nSR1,MA1\nSR1,MA2\nSR2,MA3\n,MA4\n"), Options{})
	require.NoError(t, err)
	file.Path = "manual.csv"

	groups := file.GroupBy("Parent")
	require.Len(t, groups, 2)
	assert.Equal(t, "MA1", groups["SR1"][0].Get("Id"))
	assert.Equal(t, "MA2", groups["SR1"][1].Get("Id"))

	assert.NoError(t, file.RequireColumns("Parent", "Id"))
	assert.ErrorContains(t, file.RequireColumns("Parent", "Title", "Status"), "Title, Status")
}
