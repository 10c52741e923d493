package ingest

// reader.go parses tabular source files into an untyped Frame. The frame is
// ephemeral: it exists only between parsing and normalization.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

// Row is one raw source row: source column name to untyped cell value.
type Row map[string]string

// Frame is a parsed tabular document: the ordered source columns and one
// row per transaction line. Column naming is unconstrained; the resolver
// maps it onto the canonical schema.
type Frame struct {
	Columns []string
	Rows    []Row
}

// ReadCSV parses a CSV document into a Frame. The first record is the
// header. Handles UTF-8 BOMs, invalid UTF-8 sequences, and ragged rows
// (missing trailing cells are treated as absent values).
func ReadCSV(r io.Reader) (Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Frame{}, fmt.Errorf("read source: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = sanitizeUTF8(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Frame{}, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return Frame{}, fmt.Errorf("empty file")
	}

	header := records[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = CleanCell(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return Frame{Columns: columns, Rows: rows}, nil
}

// isBlankRecord reports whether every cell in a record is empty.
func isBlankRecord(rec []string) bool {
	for _, cell := range rec {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character so the CSV parser never chokes on mixed-encoding exports.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("�"))
}
