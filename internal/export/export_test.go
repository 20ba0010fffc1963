package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stemsi/exam-portal/internal/model"
)

func sampleResults() []model.ExamResult {
	return []model.ExamResult{
		{StudentName: `Asha "Ace" Rao`, ClassName: "V", Section: "A", RollNumber: "12", Score: 15, AnsweredQuestions: 18, TotalQuestions: 20, Status: model.ResultStatusPass, SubmittedAt: "2024-05-01T10:30:00"},
		{StudentName: "Ravi, K", ClassName: "VI", Section: "B", RollNumber: "7", Score: 4, AnsweredQuestions: 20, TotalQuestions: 20, Status: model.ResultStatusFail, SubmittedAt: "2024-05-01T11:00:00Z"},
	}
}

func TestWriteCSV_BOMHeaderAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\uFEFF"))
	assert.Contains(t, out, `"Asha ""Ace"" Rao"`)
	assert.Contains(t, out, `"Ravi, K"`)

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, []string{`Asha "Ace" Rao`, "V", "A", "12", "15", "18", "20", "Pass", "2024-05-01 10:30:00"}, records[1])
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Ravi, K", rows[2][0])
	assert.Equal(t, "4", rows[2][4])
}

func TestWritePrintHTML(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, WritePrintHTML(&buf, sampleResults(), now))

	out := buf.String()
	assert.Contains(t, out, "<title>Exam Results - 2024-05-02</title>")
	assert.Contains(t, out, "<td>15/20</td>")
	assert.Contains(t, out, `<span class="status-pass">Pass</span>`)
	assert.Contains(t, out, `<span class="status-fail">Fail</span>`)
	assert.Contains(t, out, "Asha &#34;Ace&#34; Rao")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, "exam_results.xlsx", f.Filename())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
