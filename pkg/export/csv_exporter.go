package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Column maps a record key to its CSV header.
type Column struct {
	Key    string
	Header string
}

// Table is tabular export content.
type Table struct {
	Columns []Column
	Rows    []map[string]string
}

// CSVExporter renders tables as CSV. With a BOM the output opens cleanly in
// spreadsheet tools that default to a legacy code page.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(withBOM bool) *CSVExporter {
	return &CSVExporter{bom: withBOM}
}

// ContentType is the MIME type of the rendered output.
func (e *CSVExporter) ContentType() string {
	return "text/csv; charset=utf-8"
}

// Write streams the table to w.
func (e *CSVExporter) Write(w io.Writer, table Table) error {
	if len(table.Columns) == 0 {
		return fmt.Errorf("csv requires at least one column")
	}
	if e.bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write csv bom: %w", err)
		}
	}
	writer := csv.NewWriter(w)
	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Header
		if header[i] == "" {
			header[i] = col.Key
		}
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col.Key]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Render returns the table as CSV bytes.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := e.Write(buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
