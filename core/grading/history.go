package grading

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/curriculum"
)

var ErrHistoryNotFound = errors.New("no grade history for this academic year")

// History is the grade summary of a student for an academic year and a category.
// SubjectMarks is the source of truth, the other figures derive from it.
// Student, school and level are copied so the history outlives changes to them.
type History struct {
	ID              string              `json:"id" db:"id"`
	StudentID       string              `json:"student_id" db:"student_id"`
	StudentName     string              `json:"student_name" db:"student_name"`
	SchoolName      string              `json:"school_name" db:"school_name"`
	LevelName       string              `json:"level_name" db:"level_name"`
	AcademicYear    int                 `json:"academic_year" db:"academic_year"`
	Category        curriculum.Category `json:"category" db:"category"`
	TotalMarks      float64             `json:"total_marks" db:"total_marks"`
	ObtainedMarks   int                 `json:"obtained_marks" db:"obtained_marks"`
	GradePercentage float64             `json:"grade_percentage" db:"grade_percentage"`
	SubjectMarks    map[string]int      `json:"subject_marks" db:"-"`
	Verdict         Verdict             `json:"verdict" db:"verdict"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// Recompute derives the figures of h from its SubjectMarks.
func (h *History) Recompute(subjects map[string]curriculum.Subject) {
	s := AggregateSubjects(h.SubjectMarks, subjects, curriculum.CategoryAll)
	h.TotalMarks = s.Total
	h.ObtainedMarks = s.Obtained
	h.GradePercentage = s.Percentage
	h.Verdict = s.Verdict
}

func (h History) Summary() Summary {
	return Summary{Total: h.TotalMarks, Obtained: h.ObtainedMarks, Percentage: h.GradePercentage, Verdict: h.Verdict}
}

// Merge joins the histories of a student for one academic year into a CategoryAll history.
func Merge(hs []History, subjects map[string]curriculum.Subject) History {
	var merged History
	merged.SubjectMarks = make(map[string]int)
	for i, h := range hs {
		if i == 0 || h.UpdatedAt.After(merged.UpdatedAt) {
			id, marks := merged.ID, merged.SubjectMarks
			merged = h
			merged.ID, merged.SubjectMarks = id, marks
		}
		for name, m := range h.SubjectMarks {
			merged.SubjectMarks[name] = m
		}
	}
	merged.Category = curriculum.CategoryAll
	merged.Recompute(subjects)
	return merged
}

// HistoryFilter selects histories, zero values are not filtered on.
type HistoryFilter struct {
	StudentID    string              `query:"student_id"`
	SchoolName   string              `query:"-"`
	LevelName    string              `query:"-"`
	AcademicYear int                 `query:"academic_year"`
	Category     curriculum.Category `query:"-"`
}

type HistoryRepository interface {
	// UpsertHistory creates or fully replaces the history of (student, academic year, category).
	UpsertHistory(ctx context.Context, h History) (History, error)
	// FindHistory returns ErrHistoryNotFound when absent.
	FindHistory(ctx context.Context, studentID string, academicYear int, category curriculum.Category) (History, error)
	// ListDistinctYears returns the academic years having history, most recent first.
	// An empty studentID lists the years of all students.
	ListDistinctYears(ctx context.Context, studentID string) ([]int, error)
	// QueryHistory orders by school name, level name, student name, then category.
	QueryHistory(ctx context.Context, filter HistoryFilter) ([]History, error)
}

func marshalWithMessage(v interface{}, err error) ([]byte, error) {
	b, mErr := json.Marshal(v)
	if mErr != nil || err == nil {
		return b, mErr
	}
	var fields map[string]interface{}
	if mErr := json.Unmarshal(b, &fields); mErr != nil {
		return nil, mErr
	}
	fields["error"] = err.Error()
	return json.Marshal(fields)
}
