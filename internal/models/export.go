package models

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// Valid reports whether the format can be rendered.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportKind selects which view of the collection is rendered.
type ExportKind string

const (
	ExportLinks   ExportKind = "links"
	ExportFilters ExportKind = "filters"
	ExportReview  ExportKind = "review"
	ExportSummary ExportKind = "summary"
)

// Valid reports whether the kind names a known view.
func (k ExportKind) Valid() bool {
	switch k {
	case ExportLinks, ExportFilters, ExportReview, ExportSummary:
		return true
	default:
		return false
	}
}
