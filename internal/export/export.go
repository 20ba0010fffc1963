// Package export renders exam results as CSV, XLSX and a printable HTML report.
package export

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/exam-portal/internal/model"
)

// Format is a downloadable export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename returns the download name for f.
func (f Format) Filename() string {
	return "exam_results." + string(f)
}

// ParseFormat validates a user-supplied format; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Headers are the columns of the CSV and XLSX exports.
var Headers = []string{"Name", "Class", "Section", "Roll No.", "Score", "Answered", "Total Questions", "Status", "Submitted At"}

func row(r model.ExamResult) []string {
	return []string{
		r.StudentName,
		r.ClassName,
		r.Section,
		r.RollNumber,
		strconv.Itoa(r.Score),
		strconv.Itoa(r.AnsweredQuestions),
		strconv.Itoa(r.TotalQuestions),
		string(r.Status),
		model.FormatTimestamp(r.SubmittedAt),
	}
}

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\uFEFF"

// WriteCSV writes results as UTF-8 CSV with a byte-order mark.
func WriteCSV(w io.Writer, results []model.ExamResult) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Results"

// WriteXLSX writes results as a single-sheet workbook.
func WriteXLSX(w io.Writer, results []model.ExamResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.StudentName, r.ClassName, r.Section, r.RollNumber,
			r.Score, r.AnsweredQuestions, r.TotalQuestions,
			string(r.Status), model.FormatTimestamp(r.SubmittedAt),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, bold)
	}

	return f.Write(w)
}

var printTemplate = template.Must(template.New("print").Funcs(template.FuncMap{
	"timestamp": model.FormatTimestamp,
	"passed":    func(s model.ResultStatus) bool { return s == model.ResultStatusPass },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Exam Results - {{.Date}}</title>
<style>
body { font-family: sans-serif; margin: 20px; }
table { width: 100%; border-collapse: collapse; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
h1 { text-align: center; margin-bottom: 20px; }
.status-pass { color: green; font-weight: bold; }
.status-fail { color: red; font-weight: bold; }
@media print { .no-print { display: none; } }
</style>
</head>
<body>
<h1>Exam Results</h1>
<table>
<thead><tr><th>Name</th><th>Class</th><th>Section</th><th>Roll No.</th><th>Score</th><th>Status</th><th>Submitted At</th></tr></thead>
<tbody>
{{- range .Results}}
<tr>
<td>{{.StudentName}}</td>
<td>{{.ClassName}}</td>
<td>{{.Section}}</td>
<td>{{.RollNumber}}</td>
<td>{{.Score}}/{{.TotalQuestions}}</td>
<td><span class="{{if passed .Status}}status-pass{{else}}status-fail{{end}}">{{.Status}}</span></td>
<td>{{timestamp .SubmittedAt}}</td>
</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// WritePrintHTML renders the printable report dated at now.
func WritePrintHTML(w io.Writer, results []model.ExamResult, now time.Time) error {
	return printTemplate.Execute(w, struct {
		Date    string
		Results []model.ExamResult
	}{
		Date:    now.Format("2006-01-02"),
		Results: results,
	})
}
