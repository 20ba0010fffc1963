package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/table"
)

// StudentLister is the backend listing of registered students.
type StudentLister interface {
	Students(ctx context.Context) ([]model.Student, error)
}

var studentColumns = table.Columns[model.Student]{
	"name":         func(s model.Student) any { return s.Name },
	"className":    func(s model.Student) any { return s.ClassName },
	"section":      func(s model.Student) any { return s.Section },
	"rollNumber":   func(s model.Student) any { return s.RollNumber },
	"registeredAt": func(s model.Student) any { return timestampValue(s.RegisteredAt) },
}

// RosterService serves the registered-students listing.
type RosterService struct {
	students StudentLister
	log      zerolog.Logger
}

// NewRosterService creates a new RosterService.
func NewRosterService(students StudentLister, log zerolog.Logger) *RosterService {
	return &RosterService{
		students: students,
		log:      log.With().Str("component", "roster_service").Logger(),
	}
}

// List returns students matching q, newest registration first by default.
func (s *RosterService) List(ctx context.Context, q model.ListQuery) (Page[model.Student], error) {
	all, err := s.students.Students(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch students")
		return Page[model.Student]{}, err
	}

	rows := table.Filter(all, func(st model.Student) bool {
		return table.MatchSearch(q.Search, st.Name, st.RollNumber) &&
			table.MatchEnum(q.ClassName, st.ClassName) &&
			table.MatchEnum(q.Section, st.Section)
	})
	return sortAndPage(rows, studentColumns, q, "registeredAt", table.Desc)
}
