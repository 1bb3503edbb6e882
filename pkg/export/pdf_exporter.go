package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Detail is a labelled line printed above the table.
type Detail struct {
	Label string
	Value string
}

// Document is a single-page printable record: heading, labelled details,
// one table and trailing footer lines.
type Document struct {
	Title    string
	Subtitle string
	Details  []Detail
	Table    Table
	Footer   []string
}

// PDFExporter renders documents with gofpdf using the core fonts.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the MIME type of the rendered output.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Render lays doc out on an A4 page.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Table.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 15, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Title != "" {
		pdf.SetFont("Times", "B", 20)
		pdf.SetTextColor(26, 35, 126)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.SetDrawColor(255, 162, 0)
	pdf.SetLineWidth(0.3)
	y := pdf.GetY() + 2
	pdf.Line(20, y, 190, y)
	pdf.Ln(10)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	for _, d := range doc.Details {
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s: %s", d.Label, d.Value)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.1)
	colWidth := 170.0 / float64(len(doc.Table.Columns))
	pdf.SetFont("Helvetica", "B", 10)
	for _, col := range doc.Table.Columns {
		header := col.Header
		if header == "" {
			header = col.Key
		}
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range doc.Table.Rows {
		for _, col := range doc.Table.Columns {
			pdf.CellFormat(colWidth, 7, tr(row[col.Key]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(doc.Footer) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(80, 80, 80)
		for _, line := range doc.Footer {
			pdf.MultiCell(0, 4, tr(line), "", "L", false)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
