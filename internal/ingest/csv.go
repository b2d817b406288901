package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ReadDelimited parses a file that failed workbook decoding as
// semicolon-delimited text, trying UTF-8 first and Latin-1 second. Older
// cedant exports are frequently Latin-1 encoded CSV dressed up with an
// .xlsx extension.
func ReadDelimited(data []byte) ([][]string, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("delimited file is empty")
	}
	return rows, nil
}
