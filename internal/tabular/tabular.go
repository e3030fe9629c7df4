// Package tabular decodes uploaded statement files into rows of strings.
// It accepts XLSX and CSV, sniffing the format and the CSV delimiter from
// the bytes rather than trusting the file name.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyFile = errors.New("file is empty")

var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04} // zip container

// Decode turns file bytes into rows. XLSX files are detected by their zip
// magic; everything else is treated as CSV.
func Decode(data []byte) ([][]string, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return decodeXLSX(data)
	}
	return decodeCSV(data)
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func decodeCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf}) // UTF-8 BOM
	if !utf8.Valid(data) {
		data = latin1ToUTF8(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// sniffDelimiter counts candidate separators in the first line and picks
// the most frequent. Chilean bank exports favor semicolons since the comma
// is the decimal separator.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}

	best, bestCount := ',', 0
	for _, candidate := range []byte{';', '\t', ','} {
		if n := bytes.Count(line, []byte{candidate}); n > bestCount {
			best, bestCount = rune(candidate), n
		}
	}
	return best
}

// latin1ToUTF8 reinterprets ISO-8859-1 bytes, the encoding some banks
// still export. Every latin-1 byte maps directly to the same rune.
func latin1ToUTF8(data []byte) []byte {
	var sb strings.Builder
	sb.Grow(len(data) * 2)
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return []byte(sb.String())
}

// TrimToHeader drops preamble rows (bank name, account info, blank lines)
// above the header. isHeader decides which row is the header; the search
// gives up after maxScan rows and returns the input unchanged.
func TrimToHeader(rows [][]string, maxScan int, isHeader func([]string) bool) [][]string {
	limit := len(rows)
	if maxScan > 0 && maxScan < limit {
		limit = maxScan
	}
	for i := 0; i < limit; i++ {
		if isHeader(rows[i]) {
			return rows[i:]
		}
	}
	return rows
}
