// Package report builds the printable student lists, grade sheets and grade reports.
// Rendering to a file format is left to a Renderer.
package report

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/grading"
)

var ErrUnknownFormat = errors.New("format must be pdf or xlsx")

// Labels used in headers when a filter does not narrow a value down to one.
const (
	AllSchools   = "All schools"
	AllLevels    = "All levels"
	AllYears     = "All years"
	AllGenders   = "All genders"
	AllStatuses  = "All statuses"
	NoData       = "No data"
	missingValue = "-"
)

// Header is printed above every document.
type Header struct {
	Title  string
	School string
	// Info holds "label: value" pairs, in order.
	Info []string
}

func (h Header) InfoLine() string { return strings.Join(h.Info, " | ") }

type StudentRow struct {
	Index         int
	ID            string
	FirstName     string
	LastName      string
	Gender        string
	School        string
	SpecialStatus string
}

// StudentList is the printable list of the students matching a filter.
type StudentList struct {
	Header Header
	Rows   []StudentRow
}

func (l StudentList) Columns() []string {
	return []string{"#", "ID", "First name", "Last name", "Gender", "School", "Special status"}
}

func (r StudentRow) Cells() []string {
	return []string{itoa(r.Index), r.ID, r.FirstName, r.LastName, r.Gender, r.School, r.SpecialStatus}
}

type GradeSheetRow struct {
	StudentID   string
	StudentName string
	// Marks of each subject of the sheet, in order. Missing marks are "-".
	Marks   []string
	Summary grading.Summary
}

// GradeSheet lists the grade histories of many students, one subject per column.
type GradeSheet struct {
	Header   Header
	Subjects []string
	Totals   []float64
	Rows     []GradeSheetRow
}

func (s GradeSheet) Columns() []string {
	cols := []string{"ID", "Name"}
	for i, name := range s.Subjects {
		cols = append(cols, name+" ("+ftoa(s.Totals[i])+")")
	}
	return append(cols, "Total", "Obtained", "%", "Result")
}

func (r GradeSheetRow) Cells() []string {
	cells := append([]string{r.StudentID, r.StudentName}, r.Marks...)
	return append(cells,
		ftoa(r.Summary.Total),
		itoa(r.Summary.Obtained),
		ftoa2(r.Summary.Percentage),
		string(r.Summary.Verdict),
	)
}

// GradeSection is the result of one category of subjects.
type GradeSection struct {
	Category curriculum.Category
	Rows     []grading.SubjectRow
	Summary  grading.Summary
}

func (GradeSection) Columns() []string {
	return []string{"Subject", "Marks", "Total", "%", "Grade", "Status"}
}

func SubjectCells(r grading.SubjectRow) []string {
	return []string{r.Name, itoa(r.Marks), r.TotalText(), r.PercentageText(), r.GradeText(), r.StatusText()}
}

// GradeReport is the result of one student for an academic year.
type GradeReport struct {
	Header       Header
	StudentID    string
	StudentName  string
	AcademicYear int
	Sections     []GradeSection
	Summary      grading.Summary
}

// Renderer writes documents in a file format.
type Renderer interface {
	ContentType() string
	Extension() string
	StudentList(w io.Writer, l StudentList) error
	GradeSheet(w io.Writer, s GradeSheet) error
	GradeReport(w io.Writer, r GradeReport) error
}

// Renderers selects a Renderer by format name.
type Renderers map[string]Renderer

func (rs Renderers) Get(format string) (Renderer, error) {
	if format == "" {
		format = "pdf"
	}
	r, ok := rs[strings.ToLower(format)]
	if !ok {
		return nil, ErrUnknownFormat
	}
	return r, nil
}

// Filename of a document, eg. "students_2024.pdf".
func Filename(r Renderer, name string, year int) string {
	y := "all"
	if year != 0 {
		y = itoa(year)
	}
	return name + "_" + y + "." + r.Extension()
}
