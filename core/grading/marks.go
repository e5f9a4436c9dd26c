package grading

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
)

var (
	ErrNotGraded   = errors.New("not graded yet")
	ErrNotInteger  = errors.New("marks must be a whole number")
	ErrOutOfRange  = errors.New("marks must be between 0 and the subject total")
	ErrNotEnrolled = errors.New("student is not enrolled at this school and level")

	ErrOfferingNotInLevel    = errors.New("subject is not taught at this level")
	ErrOfferingNotInSemester = errors.New("subject is not taught this semester")
)

// Ungraded is displayed in place of a missing mark.
const Ungraded = "-"

// Mark is the marks obtained by a student for an offering during an academic year.
type Mark struct {
	ID           string              `json:"id" db:"id"`
	StudentID    string              `json:"student_id" db:"student_id"`
	OfferingID   int                 `json:"offering_id" db:"offering_id"`
	AcademicYear int                 `json:"academic_year" db:"academic_year"`
	Semester     int                 `json:"semester" db:"semester"`
	Category     curriculum.Category `json:"category" db:"category"`
	Obtained     null.Int            `json:"obtained" db:"obtained"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`
}

func (m Mark) Graded() bool { return m.Obtained.Valid }

// Display renders the mark for humans, Ungraded when missing.
func (m Mark) Display() string {
	if !m.Graded() {
		return Ungraded
	}
	return strconv.Itoa(m.Obtained.Int)
}

type MarkFilter struct {
	StudentIDs   []string
	AcademicYear int
	Semester     int
	Category     curriculum.Category
}

type MarkRepository interface {
	// GetMark returns ErrNotGraded when no mark was recorded.
	GetMark(ctx context.Context, studentID string, offeringID, academicYear int) (Mark, error)
	// UpsertMark creates or replaces the mark of (student, offering, academic year).
	UpsertMark(ctx context.Context, m Mark) (Mark, error)
	// ListMarks applies AND operation on the non-zero MarkFilter fields.
	ListMarks(ctx context.Context, filter MarkFilter) ([]Mark, error)
	// PurgeMarks deletes the marks recorded during a term and returns how many.
	PurgeMarks(ctx context.Context, semester, academicYear int) (int, error)
}

// EntryError is a rejected mark entry.
type EntryError struct {
	Index       int    `json:"index"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Subject     string `json:"subject"`
	Value       string `json:"value"`
	Err         error  `json:"-"`
}

func (e *EntryError) Error() string {
	who := e.StudentID
	if e.StudentName != "" {
		who = fmt.Sprintf("%s (%s)", e.StudentName, e.StudentID)
	}
	return fmt.Sprintf("%s, %s: %q: %v", who, e.Subject, e.Value, e.Err)
}

func (e *EntryError) Cause() error { return e.Err }

// MarshalJSON adds the error message.
func (e EntryError) MarshalJSON() ([]byte, error) {
	type entry EntryError
	return marshalWithMessage(entry(e), e.Err)
}

// ParseMark reads a raw mark cell. Blank cells are skipped, ok is false for them.
func ParseMark(raw string, total float64) (value int, ok bool, err error) {
	raw = core.CleanString(raw)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, ErrNotInteger
	}
	if value < 0 || float64(value) > total {
		return 0, false, ErrOutOfRange
	}
	return value, true, nil
}
