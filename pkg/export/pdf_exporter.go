package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// wideColumns hold long free-form values and get a double share of the
// table width.
var wideColumns = map[string]bool{"URL": true, "Rules": true, "Error": true}

// PDFExporter renders a Dataset as a paginated table. Tables wider than a
// handful of columns flip to landscape so the URL column keeps a readable
// width.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the document with an optional title line and a
// generated-at footer on every page.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("dataset has no headers")
	}

	orientation, usable := "P", 190.0
	if len(data.Headers) > 5 {
		orientation, usable = "L", 277.0
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	generated := time.Now().UTC().Format(time.RFC3339)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("generated %s - page %d", generated, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	widths := columnWidths(data.Headers, usable)

	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, fit(pdf, row[header], widths[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths distributes the usable width, weighting free-form columns
// double.
func columnWidths(headers []string, usable float64) []float64 {
	shares := make([]float64, len(headers))
	total := 0.0
	for i, h := range headers {
		shares[i] = 1
		if wideColumns[h] {
			shares[i] = 2
		}
		total += shares[i]
	}
	widths := make([]float64, len(headers))
	for i := range headers {
		widths[i] = usable * shares[i] / total
	}
	return widths
}

// fit trims a value with an ellipsis until it fits its cell.
func fit(pdf *gofpdf.Fpdf, value string, width float64) string {
	const pad = 2.0
	if pdf.GetStringWidth(value) <= width-pad {
		return value
	}
	for len(value) > 0 && pdf.GetStringWidth(value+"...") > width-pad {
		value = value[:len(value)-1]
	}
	return value + "..."
}
