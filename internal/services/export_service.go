package services

import (
	"bytes"
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

//go:embed templates/exports/*.html
var exportTemplates embed.FS

// Export formats
const (
	FormatCSV   = "csv"
	FormatXLSX  = "xlsx"
	FormatPDF   = "pdf"
	FormatPrint = "print"
)

// ExportFile is a rendered export ready to be sent to the client
type ExportFile struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Table is the format-neutral shape of every export
type Table struct {
	Title   string
	Name    string // base file name, no extension
	Headers []string
	Rows    [][]string
	Footer  []string
}

type ExportService struct {
	now func() time.Time
}

func NewExportService() *ExportService {
	return &ExportService{now: time.Now}
}

// IsValidExportFormat returns true for csv, xlsx, pdf and print
func IsValidExportFormat(format string) bool {
	switch format {
	case FormatCSV, FormatXLSX, FormatPDF, FormatPrint:
		return true
	}
	return false
}

// Export renders table in the requested format
func (s *ExportService) Export(format string, table Table) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatCSV:
		return s.ExportCSV(table)
	case FormatXLSX:
		return s.ExportXLSX(table)
	case FormatPDF:
		return s.ExportPDF(table)
	case FormatPrint:
		return s.ExportPrint(table)
	}
	return nil, invalid("format", "export.format_invalid", "format must be one of csv, xlsx, pdf, print")
}

func (s *ExportService) filename(table Table, ext string) string {
	name := table.Name
	if name == "" {
		name = "export"
	}
	return fmt.Sprintf("%s_%s.%s", name, s.now().Format("2006-01-02"), ext)
}

func (s *ExportService) ExportCSV(table Table) (*ExportFile, error) {
	buf := new(bytes.Buffer)
	// Excel needs the BOM to open UTF-8 names correctly
	buf.WriteString("\xEF\xBB\xBF")
	writer := csv.NewWriter(buf)

	_ = writer.Write(table.Headers)
	for _, row := range table.Rows {
		_ = writer.Write(row)
	}
	if len(table.Footer) > 0 {
		_ = writer.Write(table.Footer)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return &ExportFile{Data: buf.Bytes(), Filename: s.filename(table, "csv"), ContentType: "text/csv; charset=utf-8"}, nil
}

func (s *ExportService) ExportXLSX(table Table) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if table.Title != "" {
		sheet = sheetName(table.Title)
		_ = f.SetSheetName("Sheet1", sheet)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	for col, header := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range table.Rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	if len(table.Footer) > 0 {
		line := len(table.Rows) + 2
		for col, value := range table.Footer {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			_ = f.SetCellValue(sheet, cell, value)
			_ = f.SetCellStyle(sheet, cell, cell, boldStyle)
		}
	}
	if len(table.Headers) > 0 {
		last, _ := excelize.ColumnNumberToName(len(table.Headers))
		_ = f.SetColWidth(sheet, "A", last, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return &ExportFile{
		Data:        buf.Bytes(),
		Filename:    s.filename(table, "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

func (s *ExportService) ExportPDF(table Table) (*ExportFile, error) {
	orientation := "P"
	if len(table.Headers) > 6 {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, tr(table.Title))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 8)
	pdf.Cell(0, 6, s.now().Format("2006-01-02 15:04"))
	pdf.Ln(8)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := pageWidth - left - right
	if len(table.Headers) > 0 {
		colWidth /= float64(len(table.Headers))
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for _, header := range table.Headers {
		pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range table.Rows {
		for _, value := range row {
			pdf.CellFormat(colWidth, 6, tr(value), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(table.Footer) > 0 {
		pdf.SetFont("Arial", "B", 8)
		for _, value := range table.Footer {
			pdf.CellFormat(colWidth, 6, tr(value), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}

	return &ExportFile{Data: buf.Bytes(), Filename: s.filename(table, "pdf"), ContentType: "application/pdf"}, nil
}

// ExportPrint renders a standalone HTML page that opens the print dialog
func (s *ExportService) ExportPrint(table Table) (*ExportFile, error) {
	tmpl, err := template.ParseFS(exportTemplates, "templates/exports/print.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse print template: %w", err)
	}

	data := struct {
		Table
		GeneratedAt string
	}{Table: table, GeneratedAt: s.now().Format("2006-01-02 15:04")}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render print view: %w", err)
	}

	return &ExportFile{Data: buf.Bytes(), Filename: s.filename(table, "html"), ContentType: "text/html; charset=utf-8"}, nil
}

// sheetName trims a title to Excel's 31 character sheet name limit
func sheetName(title string) string {
	r := []rune(strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")", ":", "-").Replace(title))
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}
