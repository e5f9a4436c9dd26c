package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
)

type (
	Students interface {
		Get(ctx context.Context, id string) (student.Student, error)
		All(ctx context.Context, filter student.QueryFilter) ([]student.Student, error)
	}

	Schools interface {
		Placement(ctx context.Context, studentID string) (school.Placement, error)
	}

	Semesters interface {
		Get(ctx context.Context) (semester.Semester, error)
	}

	Grades interface {
		Result(ctx context.Context, studentID string, year int, category curriculum.Category) (grading.Result, error)
		Query(ctx context.Context, filter grading.HistoryFilter) (grading.Listing, error)
	}

	// Builder gathers the data of the documents.
	Builder struct {
		students  Students
		schools   Schools
		semesters Semesters
		grades    Grades
	}
)

func NewBuilder(students Students, schools Schools, semesters Semesters, grades Grades) *Builder {
	return &Builder{students: students, schools: schools, semesters: semesters, grades: grades}
}

func categoryText(c curriculum.Category) string {
	if c == curriculum.CategoryAll {
		return "All categories"
	}
	return c.String()
}

func yearText(year int) string {
	return fmt.Sprintf("%d (BE %d)", year, core.BuddhistYear(year))
}

// StudentList lists the active students matching filter, with their school.
func (b *Builder) StudentList(ctx context.Context, filter student.QueryFilter) (StudentList, error) {
	students, err := b.students.All(ctx, filter)
	if err != nil {
		return StudentList{}, errors.Wrap(err, "listing students")
	}

	l := StudentList{Rows: make([]StudentRow, 0, len(students))}
	var schools, levels, genders, statuses []string
	enrolled := false
	for i, s := range students {
		row := StudentRow{
			Index:         i + 1,
			ID:            s.ID,
			FirstName:     s.FirstName,
			LastName:      s.LastName,
			Gender:        string(s.Gender),
			School:        NoData,
			SpecialStatus: string(s.SpecialStatus),
		}
		if row.Gender == "" {
			row.Gender = NoData
		}
		if row.SpecialStatus == "" {
			row.SpecialStatus = NoData
		}

		p, err := b.schools.Placement(ctx, s.ID)
		switch {
		case err == nil:
			enrolled = true
			row.School = p.SchoolName
			schools = append(schools, p.SchoolName)
			levels = append(levels, p.LevelName)
		case errors.Cause(err) != school.ErrEnrolmentNotFound:
			return StudentList{}, errors.Wrap(err, "getting placement")
		}
		genders = append(genders, string(s.Gender))
		statuses = append(statuses, string(s.SpecialStatus))
		l.Rows = append(l.Rows, row)
	}

	year := AllYears
	if filter.AcademicYear != 0 {
		year = yearText(filter.AcademicYear)
	} else if enrolled {
		// every enrolment follows the current semester
		if sem, err := b.semesters.Get(ctx); err == nil {
			year = yearText(sem.Year)
		}
	}

	l.Header = Header{
		Title:  "Student list",
		School: distinct(schools, AllSchools),
		Info: []string{
			"Level: " + distinct(levels, AllLevels),
			"Academic year: " + year,
			"Gender: " + distinct(genders, AllGenders),
			"Special status: " + distinct(statuses, AllStatuses),
		},
	}
	return l, nil
}

// GradeSheet lists the grade histories matching filter, one row per student and academic year.
// With curriculum.CategoryAll, the categories of a student are joined in one row.
func (b *Builder) GradeSheet(ctx context.Context, filter grading.HistoryFilter) (GradeSheet, error) {
	listing, err := b.grades.Query(ctx, filter)
	if err != nil {
		return GradeSheet{}, err
	}

	s := GradeSheet{Subjects: listing.Subjects, Totals: make([]float64, len(listing.Subjects))}
	for i, name := range s.Subjects {
		s.Totals[i] = listing.Totals[name]
	}

	type key struct {
		studentID string
		year      int
	}
	var order []key
	joined := make(map[key]grading.History)
	var schools, levels, years []string
	for _, h := range listing.Histories {
		k := key{h.StudentID, h.AcademicYear}
		j, ok := joined[k]
		if !ok {
			order = append(order, k)
			j = h
			j.SubjectMarks = make(map[string]int, len(h.SubjectMarks))
		}
		for name, m := range h.SubjectMarks {
			j.SubjectMarks[name] = m
		}
		joined[k] = j
		schools = append(schools, h.SchoolName)
		levels = append(levels, h.LevelName)
		years = append(years, yearText(h.AcademicYear))
	}

	s.Rows = make([]GradeSheetRow, 0, len(order))
	for _, k := range order {
		h := joined[k]
		row := GradeSheetRow{StudentID: h.StudentID, StudentName: h.StudentName, Marks: make([]string, len(s.Subjects))}
		for i, name := range s.Subjects {
			row.Marks[i] = missingValue
			if m, ok := h.SubjectMarks[name]; ok {
				row.Marks[i] = itoa(m)
			}
		}
		row.Summary = grading.Aggregate(h.SubjectMarks, listing.Totals)
		s.Rows = append(s.Rows, row)
	}

	schoolName, level := filter.SchoolName, filter.LevelName
	if schoolName == "" {
		schoolName = distinct(schools, AllSchools)
	}
	if level == "" {
		level = distinct(levels, AllLevels)
	}
	year := distinct(years, AllYears)
	if filter.AcademicYear != 0 {
		year = yearText(filter.AcademicYear)
	}
	s.Header = Header{
		Title:  "Grade sheet",
		School: schoolName,
		Info: []string{
			"Level: " + level,
			"Academic year: " + year,
			"Category: " + categoryText(filter.Category),
		},
	}
	return s, nil
}

// GradeReport is the result of a student for a year, one section per category having history.
// It fails with grading.ErrHistoryNotFound when there is none.
func (b *Builder) GradeReport(ctx context.Context, studentID string, year int) (GradeReport, error) {
	st, err := b.students.Get(ctx, studentID)
	if err != nil {
		return GradeReport{}, err
	}

	r := GradeReport{StudentID: st.ID, StudentName: st.FullName(), AcademicYear: year}
	var levelName, schoolName string
	for _, cat := range []curriculum.Category{curriculum.CategoryTheory, curriculum.CategoryPractical} {
		res, err := b.grades.Result(ctx, st.ID, year, cat)
		if errors.Cause(err) == grading.ErrHistoryNotFound {
			continue
		}
		if err != nil {
			return GradeReport{}, errors.Wrapf(err, "getting %s result", cat)
		}
		r.Sections = append(r.Sections, GradeSection{Category: cat, Rows: res.Subjects, Summary: res.Summary})
		schoolName, levelName = res.History.SchoolName, res.History.LevelName
	}
	if len(r.Sections) == 0 {
		return GradeReport{}, grading.ErrHistoryNotFound
	}

	all, err := b.grades.Result(ctx, st.ID, year, curriculum.CategoryAll)
	if err != nil {
		return GradeReport{}, errors.Wrap(err, "getting result")
	}
	r.Summary = all.Summary

	if schoolName == "" {
		schoolName = NoData
	}
	if levelName == "" {
		levelName = NoData
	}
	r.Header = Header{
		Title:  "Grade report",
		School: schoolName,
		Info: []string{
			fmt.Sprintf("Student: %s (%s)", r.StudentName, r.StudentID),
			"Level: " + levelName,
			"Academic year: " + yearText(year),
		},
	}
	return r, nil
}
