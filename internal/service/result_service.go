package service

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/export"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/table"
)

// ResultLister is the backend listing of scored submissions.
type ResultLister interface {
	Results(ctx context.Context) ([]model.ExamResult, error)
}

var resultColumns = table.Columns[model.ExamResult]{
	"studentName":       func(r model.ExamResult) any { return r.StudentName },
	"className":         func(r model.ExamResult) any { return r.ClassName },
	"section":           func(r model.ExamResult) any { return r.Section },
	"rollNumber":        func(r model.ExamResult) any { return r.RollNumber },
	"score":             func(r model.ExamResult) any { return r.Score },
	"answeredQuestions": func(r model.ExamResult) any { return r.AnsweredQuestions },
	"totalQuestions":    func(r model.ExamResult) any { return r.TotalQuestions },
	"status":            func(r model.ExamResult) any { return string(r.Status) },
	"submittedAt":       func(r model.ExamResult) any { return timestampValue(r.SubmittedAt) },
}

// ResultService serves the results listing and its exports.
type ResultService struct {
	results ResultLister
	now     func() time.Time
	log     zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(results ResultLister, log zerolog.Logger) *ResultService {
	return &ResultService{
		results: results,
		now:     time.Now,
		log:     log.With().Str("component", "result_service").Logger(),
	}
}

// List returns results matching q, most recent submission first by default.
func (s *ResultService) List(ctx context.Context, q model.ListQuery) (Page[model.ExamResult], error) {
	all, err := s.results.Results(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch results")
		return Page[model.ExamResult]{}, err
	}

	rows := table.Filter(all, func(r model.ExamResult) bool {
		return table.MatchSearch(q.Search, r.StudentName, r.RollNumber) &&
			table.MatchEnum(q.ClassName, r.ClassName) &&
			table.MatchEnum(q.Section, r.Section) &&
			table.MatchEnum(q.Status, string(r.Status))
	})
	return sortAndPage(rows, resultColumns, q, "submittedAt", table.Desc)
}

// Export writes every result matching q (ignoring paging) in format f.
func (s *ResultService) Export(ctx context.Context, w io.Writer, q model.ListQuery, f export.Format) error {
	q.Page, q.PerPage = 0, 0
	page, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	switch f {
	case export.FormatXLSX:
		return export.WriteXLSX(w, page.Items)
	default:
		return export.WriteCSV(w, page.Items)
	}
}

// Print writes the printable HTML report of every result matching q.
func (s *ResultService) Print(ctx context.Context, w io.Writer, q model.ListQuery) error {
	q.Page, q.PerPage = 0, 0
	page, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	return export.WritePrintHTML(w, page.Items, s.now())
}
