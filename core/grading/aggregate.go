package grading

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/trezcool/pondok/core/curriculum"
)

type Verdict string

const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

const (
	// PassMark is the lowest passing percentage, inclusive.
	PassMark = 50.0
	// NA replaces the values that cannot be computed for an unknown subject.
	NA = "N/A"
)

// Summary is the aggregate of a set of subject marks.
type Summary struct {
	Total      float64 `json:"total"`
	Obtained   int     `json:"obtained"`
	Percentage float64 `json:"percentage"`
	Verdict    Verdict `json:"verdict"`
}

// Round2 rounds x to 2 decimals.
func Round2(x float64) float64 { return math.Round(x*100) / 100 }

// Percentage of obtained over total, 0 when total is 0, rounded to 2 decimals.
func Percentage(obtained, total float64) float64 {
	return Round2(ratio(obtained, total))
}

func ratio(obtained, total float64) float64 {
	if total == 0 {
		return 0
	}
	return obtained / total * 100
}

func VerdictFor(percentage float64) Verdict {
	if percentage >= PassMark {
		return Pass
	}
	return Fail
}

// LetterGrade maps a percentage to A to F. Each band includes its lower bound.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	}
	return "F"
}

// Aggregate sums the marks and the totals of the subjects in marks.
// Subjects missing from totals count for 0 in the total.
func Aggregate(marks map[string]int, totals map[string]float64) Summary {
	var s Summary
	for name, m := range marks {
		s.Obtained += m
		s.Total += totals[name]
	}
	s.Total = Round2(s.Total)
	s.Percentage = Percentage(float64(s.Obtained), s.Total)
	s.Verdict = VerdictFor(s.Percentage)
	return s
}

// Filter keeps the marks of the known subjects of category.
// Unknown subjects are dropped whatever the category, they have no total to be weighed against.
func Filter(marks map[string]int, subjects map[string]curriculum.Subject, category curriculum.Category) map[string]int {
	kept := make(map[string]int, len(marks))
	for name, m := range marks {
		if sub, ok := subjects[name]; ok && category.Matches(sub.Category) {
			kept[name] = m
		}
	}
	return kept
}

// AggregateSubjects aggregates the marks of the subjects of category, with their configured totals.
func AggregateSubjects(marks map[string]int, subjects map[string]curriculum.Subject, category curriculum.Category) Summary {
	kept := Filter(marks, subjects, category)
	totals := make(map[string]float64, len(kept))
	for name := range kept {
		totals[name] = subjects[name].TotalMarks
	}
	return Aggregate(kept, totals)
}

// SubjectRow is the result of one subject.
// NotApplicable rows belong to subjects that are no longer known, only Name and Marks are set.
type SubjectRow struct {
	Name          string
	Marks         int
	Total         float64
	Percentage    float64
	Grade         string
	Status        Verdict
	NotApplicable bool
}

// SubjectDetails rebuilds the per subject results of marks, sorted by subject name.
// Known subjects outside category are skipped. Unknown subjects give NotApplicable rows.
func SubjectDetails(marks map[string]int, subjects map[string]curriculum.Subject, category curriculum.Category) []SubjectRow {
	rows := make([]SubjectRow, 0, len(marks))
	for name, m := range marks {
		sub, ok := subjects[name]
		if !ok {
			rows = append(rows, SubjectRow{Name: name, Marks: m, NotApplicable: true})
			continue
		}
		if !category.Matches(sub.Category) {
			continue
		}
		// graded on the exact ratio, only the displayed percentage is rounded
		p := ratio(float64(m), sub.TotalMarks)
		rows = append(rows, SubjectRow{
			Name:       name,
			Marks:      m,
			Total:      sub.TotalMarks,
			Percentage: Round2(p),
			Grade:      LetterGrade(p),
			Status:     VerdictFor(p),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func (r SubjectRow) TotalText() string {
	if r.NotApplicable {
		return NA
	}
	return strconv.FormatFloat(r.Total, 'f', -1, 64)
}

func (r SubjectRow) PercentageText() string {
	if r.NotApplicable {
		return NA
	}
	return strconv.FormatFloat(r.Percentage, 'f', 2, 64)
}

func (r SubjectRow) GradeText() string {
	if r.NotApplicable {
		return NA
	}
	return r.Grade
}

func (r SubjectRow) StatusText() string {
	if r.NotApplicable {
		return NA
	}
	return string(r.Status)
}

type subjectRowJSON struct {
	Name       string      `json:"name"`
	Marks      int         `json:"marks"`
	Total      interface{} `json:"total_marks"`
	Percentage interface{} `json:"percentage"`
	Grade      string      `json:"grade"`
	Status     string      `json:"status"`
}

// MarshalJSON renders the values of NotApplicable rows as "N/A".
func (r SubjectRow) MarshalJSON() ([]byte, error) {
	out := subjectRowJSON{Name: r.Name, Marks: r.Marks, Grade: r.GradeText(), Status: r.StatusText()}
	if r.NotApplicable {
		out.Total, out.Percentage = NA, NA
	} else {
		out.Total, out.Percentage = r.Total, r.Percentage
	}
	return json.Marshal(out)
}
